// Package search grounds plan sections with web search snippets.
//
// The Augmenter wraps a Provider with a result bound, a per-call timeout and
// graceful degradation: provider failures are logged and surface as an empty
// snippet list, never as an error.
package search
