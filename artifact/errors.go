package artifact

import "errors"

var (
	// ErrNotFound is returned when no document exists for the given request /
	// name pair.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidName is returned for empty names or names containing a path
	// separator.
	ErrInvalidName = errors.New("invalid artifact name")
)
