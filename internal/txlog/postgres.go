package txlog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey serialises concurrent Append calls across server instances.
const advisoryLockKey = int64(2_024_060_100)

const entryColumns = `idx, timestamp, tx_id, key, action, actor, data_hash, prev_hash, hash`

// PostgresLog persists the transaction chain in the tx_log table.
// It implements the Log interface.
type PostgresLog struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLog creates a PostgresLog backed by the given connection pool.
func NewPostgresLog(pool *pgxpool.Pool, logger *zap.Logger) *PostgresLog {
	return &PostgresLog{pool: pool, logger: logger}
}

// Append implements Log.
// It takes a transaction-scoped advisory lock, reads the chain tail, computes
// the new entry hash and inserts it in one transaction.
func (l *PostgresLog) Append(ctx context.Context, key, action, actor string, state []byte) (*Entry, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var prevIdx int
	var prevHash string
	if err := tx.QueryRow(ctx,
		"SELECT idx, hash FROM tx_log ORDER BY idx DESC LIMIT 1",
	).Scan(&prevIdx, &prevHash); err != nil {
		return nil, fmt.Errorf("read log tail: %w", err)
	}

	entry := &Entry{
		Index:     prevIdx + 1,
		Timestamp: now(),
		TxID:      uuid.NewString(),
		Key:       key,
		Action:    action,
		Actor:     actor,
		DataHash:  sha256Sum(state),
		PrevHash:  prevHash,
	}
	entry.Hash = hashEntry(entry)

	if _, err := tx.Exec(ctx,
		`INSERT INTO tx_log (`+entryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.Index, entry.Timestamp, entry.TxID, entry.Key,
		entry.Action, entry.Actor, entry.DataHash,
		entry.PrevHash, entry.Hash,
	); err != nil {
		return nil, fmt.Errorf("insert log entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit log tx: %w", err)
	}

	l.logger.Debug("transaction logged",
		zap.Int("idx", entry.Index),
		zap.String("tx_id", entry.TxID),
		zap.String("action", entry.Action),
		zap.String("key", entry.Key),
	)
	return entry, nil
}

// Get implements Log.
func (l *PostgresLog) Get(ctx context.Context, index int) (*Entry, error) {
	rows, err := l.pool.Query(ctx, `SELECT `+entryColumns+` FROM tx_log WHERE idx = $1`, index)
	if err != nil {
		return nil, fmt.Errorf("get log entry %d: %w", index, err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("get log entry %d: %w", index, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	return entries[0], nil
}

// Len implements Log.
func (l *PostgresLog) Len(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tx_log").Scan(&n); err != nil {
		return 0, fmt.Errorf("count log entries: %w", err)
	}
	return n, nil
}

// History implements Log.
func (l *PostgresLog) History(ctx context.Context, key string) ([]*Entry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM tx_log WHERE key = $1 AND idx > 0 ORDER BY idx ASC`, key,
	)
	if err != nil {
		return nil, fmt.Errorf("query history for %q: %w", key, err)
	}
	return collectEntries(rows)
}

// Verify implements Log. It streams all rows ordered by idx; O(n) in log length.
func (l *PostgresLog) Verify(ctx context.Context) error {
	rows, err := l.pool.Query(ctx, `SELECT `+entryColumns+` FROM tx_log ORDER BY idx ASC`)
	if err != nil {
		return fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	var prev *Entry
	for rows.Next() {
		curr, err := scanEntry(rows)
		if err != nil {
			return err
		}
		if prev == nil {
			if curr.Hash != GenesisHash {
				return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
			}
			prev = curr
			continue
		}
		if err := verifyLink(prev, curr); err != nil {
			return err
		}
		prev = curr
	}
	return rows.Err()
}

// Root implements Log.
func (l *PostgresLog) Root(ctx context.Context) (string, error) {
	var hash string
	if err := l.pool.QueryRow(ctx,
		"SELECT hash FROM tx_log ORDER BY idx DESC LIMIT 1",
	).Scan(&hash); err != nil {
		return "", fmt.Errorf("get log root: %w", err)
	}
	return hash, nil
}

func scanEntry(rows pgx.Rows) (*Entry, error) {
	e := &Entry{}
	if err := rows.Scan(
		&e.Index, &e.Timestamp, &e.TxID, &e.Key,
		&e.Action, &e.Actor, &e.DataHash,
		&e.PrevHash, &e.Hash,
	); err != nil {
		return nil, fmt.Errorf("scan log row: %w", err)
	}
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}

func collectEntries(rows pgx.Rows) ([]*Entry, error) {
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
