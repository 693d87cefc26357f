// Package badger provides a durable artifact.Store backed by BadgerDB.
package badger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/hupe1980/launchmesh/artifact"
)

const keyPrefix = "plan:"

// Options configures a Store.
type Options struct {
	// TTL expires documents after the given duration; 0 keeps them forever.
	TTL time.Duration
}

// Store keeps documents under "plan:<requestID>:<name>" keys.
type Store struct {
	db  *badger.DB
	ttl time.Duration
	own bool
}

var _ artifact.Store = (*Store)(nil)

// New wraps an open database. The caller keeps ownership of db.
func New(db *badger.DB, optFns ...func(o *Options)) *Store {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Store{db: db, ttl: opts.TTL}
}

// Open opens (or creates) a database in dir. An empty dir opens an in-memory
// database. The returned Store owns the database and closes it on Close.
func Open(dir string, optFns ...func(o *Options)) (*Store, error) {
	bopts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	if dir == "" {
		bopts = bopts.WithInMemory(true)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	s := New(db, optFns...)
	s.own = true

	return s, nil
}

// Close closes the database if the Store opened it.
func (s *Store) Close() error {
	if !s.own {
		return nil
	}
	return s.db.Close()
}

func requestPrefix(requestID string) []byte {
	return []byte(keyPrefix + requestID + ":")
}

func key(requestID, name string) []byte {
	return []byte(keyPrefix + requestID + ":" + name)
}

// Save stores (or overwrites) a document.
func (s *Store) Save(requestID, name string, data []byte) error {
	if err := artifact.ValidateKey(requestID, name); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key(requestID, name), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Get returns a stored document or artifact.ErrNotFound.
func (s *Store) Get(requestID, name string) ([]byte, error) {
	var out []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(requestID, name))
		if err != nil {
			return err
		}

		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, artifact.ErrNotFound
	}

	return out, err
}

// List returns the sorted document names of a request.
func (s *Store) List(requestID string) ([]string, error) {
	prefix := requestPrefix(requestID)
	names := make([]string, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
		}

		return nil
	})

	return names, err
}

// Delete removes a document or returns artifact.ErrNotFound.
func (s *Store) Delete(requestID, name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		k := key(requestID, name)
		if _, err := txn.Get(k); err != nil {
			return err
		}
		return txn.Delete(k)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return artifact.ErrNotFound
	}

	return err
}
