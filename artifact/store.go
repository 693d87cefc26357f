package artifact

import (
	"sort"
	"strings"
)

// Store persists plan documents keyed by request id and file name.
type Store interface {
	Save(requestID, name string, data []byte) error
	Get(requestID, name string) ([]byte, error)
	// List returns the sorted document names of a request.
	List(requestID string) ([]string, error)
	Delete(requestID, name string) error
}

// SaveAll stores every file of a rendered plan. It stops at the first error.
func SaveAll(s Store, requestID string, files map[string]string) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.Save(requestID, name, []byte(files[name])); err != nil {
			return err
		}
	}

	return nil
}

// ValidateKey rejects ids and names that cannot be stored safely.
func ValidateKey(requestID, name string) error {
	for _, s := range []string{requestID, name} {
		if s == "" || strings.ContainsAny(s, `/\:`) || s == "." || s == ".." {
			return ErrInvalidName
		}
	}

	return nil
}
