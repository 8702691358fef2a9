// Package worldstate is the key-value store of record for ledger entities.
//
// Every value carries a version that increases by one on each write. Writers
// pass the version they read; a mismatch yields ErrVersionConflict, which is
// how two transactions racing on the same key are kept from both committing.
// Version 0 means "the key must not exist yet".
//
// Implementations of the Store interface:
//   - MemoryStore: in-process, for testing and development.
//   - LevelDBStore: embedded and durable, for a single node.
//   - PostgresStore: durable and shareable, for production use.
package worldstate

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key holds no value.
	ErrNotFound = errors.New("key not found")
	// ErrVersionConflict is returned when a write's expected version is stale.
	ErrVersionConflict = errors.New("version conflict")
)

// Value is a stored entity buffer and its write version.
type Value struct {
	Key       string
	Data      []byte
	Version   uint64
	UpdatedAt time.Time
}

// Store is the interface of the world-state key-value ledger.
type Store interface {
	// Get returns the current value under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Value, error)

	// Put writes data under key if the stored version equals expectedVersion
	// and returns the new version.
	Put(ctx context.Context, key string, data []byte, expectedVersion uint64) (uint64, error)

	// Delete removes key if the stored version equals expectedVersion.
	Delete(ctx context.Context, key string, expectedVersion uint64) error

	// Keys returns every key starting with prefix, in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
