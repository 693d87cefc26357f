// Package artifact stores the downloadable documents rendered for each launch
// plan (markdown plan, checklist, marketing calendar).
//
// Documents are scoped by request id and addressed by file name. The Store
// interface is implemented by an in-process InMemoryStore and, in the badger
// sub-package, by a durable key-value store. Callers should depend on Store so
// persistence can be swapped without touching the HTTP layer.
package artifact
