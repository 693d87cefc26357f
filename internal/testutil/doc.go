// Package testutil contains helper builders and test doubles used across
// tests to reduce boilerplate when constructing requests, stage attempts and
// scripted models. They are not intended for production usage.
package testutil
