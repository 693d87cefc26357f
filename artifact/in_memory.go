package artifact

import (
	"sort"
	"sync"
)

// InMemoryOptions configures an InMemoryStore.
type InMemoryOptions struct {
	// MaxRequests bounds how many requests keep documents; the oldest request
	// is dropped first. 0 means unlimited.
	MaxRequests int
}

// InMemoryStore is an in-process Store for tests, the CLI and single-process
// deployments. Data is copied on save and retrieval so callers cannot mutate
// stored buffers.
//
// Layout: requestID -> name -> raw bytes
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][]byte
	order     []string
	max       int
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore(optFns ...func(o *InMemoryOptions)) *InMemoryStore {
	opts := InMemoryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{artifacts: make(map[string]map[string][]byte), max: opts.MaxRequests}
}

// Save stores (or overwrites) a document. The input slice is copied.
func (a *InMemoryStore) Save(requestID, name string, data []byte) error {
	if err := ValidateKey(requestID, name); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.artifacts[requestID]; !exists {
		a.artifacts[requestID] = make(map[string][]byte)
		a.order = append(a.order, requestID)

		if a.max > 0 && len(a.order) > a.max {
			oldest := a.order[0]
			a.order = a.order[1:]
			delete(a.artifacts, oldest)
		}
	}

	a.artifacts[requestID][name] = append([]byte(nil), data...)

	return nil
}

// Get returns a copy of a stored document or ErrNotFound.
func (a *InMemoryStore) Get(requestID, name string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, ok := a.artifacts[requestID][name]
	if !ok {
		return nil, ErrNotFound
	}

	return append([]byte(nil), data...), nil
}

// List returns the sorted document names of a request.
func (a *InMemoryStore) List(requestID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m := a.artifacts[requestID]
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Delete removes a document or returns ErrNotFound.
func (a *InMemoryStore) Delete(requestID, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.artifacts[requestID]
	if !ok {
		return ErrNotFound
	}

	if _, ok := m[name]; !ok {
		return ErrNotFound
	}

	delete(m, name)

	return nil
}
