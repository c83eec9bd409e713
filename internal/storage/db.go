// Package storage provides database abstractions.
package storage

import "errors"

// ErrNotFound is returned by Get for a key that does not exist.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	// Get retrieves a value by key. A missing key satisfies
	// errors.Is(err, ErrNotFound).
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix in
	// ascending byte order. The callback receives a copy of the key
	// and value. Return a non-nil error from fn to stop iteration
	// early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch collects writes that are committed together.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	// Commit applies all buffered operations. For a Batcher-backed batch
	// the commit is atomic: either every operation is durable or none is.
	Commit() error
}

// Batcher is implemented by DBs that support atomic multi-key commits.
type Batcher interface {
	NewBatch() Batch
}
