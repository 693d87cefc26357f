// Package workflow schedules plan stages over a static dependency graph.
//
// The Orchestrator validates a request, then runs the graph in
// barrier-synchronized rounds: every stage whose dependencies are all
// accepted runs concurrently (bounded by a worker pool), and the next ready
// set is computed only once the whole round has finished. A stage whose
// dependency ends failed_exhausted is itself resolved as failed_exhausted
// with placeholder text and never runs.
//
// Each stage runs through the Executor: optional search grounding, one
// generation call, evaluation against the stage's quality threshold, and a
// bounded retry loop. Exhausted stages fall back to their best-scoring
// attempt rather than discarding usable text.
package workflow
