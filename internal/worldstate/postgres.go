package worldstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore persists world state in the world_state table.
// It implements the Store interface.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (*Value, error) {
	v := &Value{Key: key}
	var version int64
	err := s.pool.QueryRow(ctx,
		`SELECT value, version, updated_at FROM world_state WHERE key = $1`, key,
	).Scan(&v.Data, &version, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	v.Version = uint64(version)
	return v, nil
}

// Put implements Store. The version check and the write happen in a single
// statement, so concurrent writers cannot both succeed.
func (s *PostgresStore) Put(ctx context.Context, key string, data []byte, expectedVersion uint64) (uint64, error) {
	if key == "" {
		return 0, fmt.Errorf("put: empty key")
	}

	var (
		newVersion int64
		err        error
	)
	if expectedVersion == 0 {
		err = s.pool.QueryRow(ctx,
			`INSERT INTO world_state (key, value, version, updated_at)
			 VALUES ($1, $2, 1, now())
			 ON CONFLICT (key) DO NOTHING
			 RETURNING version`,
			key, data,
		).Scan(&newVersion)
	} else {
		err = s.pool.QueryRow(ctx,
			`UPDATE world_state
			 SET value = $2, version = version + 1, updated_at = now()
			 WHERE key = $1 AND version = $3
			 RETURNING version`,
			key, data, int64(expectedVersion),
		).Scan(&newVersion)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("put %q: %w (expected %d)", key, ErrVersionConflict, expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("put %q: %w", key, err)
	}

	s.logger.Debug("world state written",
		zap.String("key", key),
		zap.Int64("version", newVersion),
	)
	return uint64(newVersion), nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, key string, expectedVersion uint64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM world_state WHERE key = $1 AND version = $2`,
		key, int64(expectedVersion),
	)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish a missing key from a stale version.
	if _, err := s.Get(ctx, key); err != nil {
		return err
	}
	return fmt.Errorf("delete %q: %w (expected %d)", key, ErrVersionConflict, expectedVersion)
}

// keysQuery sorts with the "C" collation so keys come back in byte order,
// the same order as the memory and leveldb stores.
const keysQuery = `SELECT key FROM world_state WHERE left(key, length($1)) = $1 ORDER BY key COLLATE "C" ASC`

// Keys implements Store.
func (s *PostgresStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx, keysQuery, prefix)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
