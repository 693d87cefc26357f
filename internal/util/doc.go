// Package util holds small internal helpers for prompt rendering.
package util
