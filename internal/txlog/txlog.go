// Package txlog records every committed world-state write in a hash chain.
//
// The chain begins with a well-known genesis entry whose Hash equals GenesisHash
// (64 hex zeros). Every later entry stores the SHA-256 of the state bytes it
// wrote and the hash of its predecessor, so rewriting history is detectable
// via Verify.
//
// Implementations of the Log interface:
//   - MemoryLog: in-process, for testing and development.
//   - LevelDBLog: embedded and durable, for a single node.
//   - PostgresLog: durable and shareable, for production use.
package txlog

import "context"

// Log is the interface for the append-only transaction history.
type Log interface {
	// Append chains a new entry recording that action by actor wrote state
	// under key. state is hashed, not stored.
	Append(ctx context.Context, key, action, actor string, state []byte) (*Entry, error)

	// Get returns the entry at the given zero-based index.
	Get(ctx context.Context, index int) (*Entry, error)

	// Len returns the total number of entries (including the genesis entry).
	Len(ctx context.Context) (int, error)

	// History returns the entries for key in commit order.
	History(ctx context.Context, key string) ([]*Entry, error)

	// Verify walks the entire chain and checks hash consistency.
	// Returns nil if the chain is intact.
	Verify(ctx context.Context) error

	// Root returns the hash of the most recent entry (the chain tip).
	Root(ctx context.Context) (string, error)
}
