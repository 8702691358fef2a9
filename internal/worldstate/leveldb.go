package worldstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"
)

// levelPrefix namespaces world-state rows so the database can be shared with
// the transaction log.
const levelPrefix = "ws/"

type levelRecord struct {
	Data      []byte    `json:"data"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LevelDBStore is a Store backed by an embedded goleveldb database.
//
// LevelDB has no compare-and-swap, so writes are serialised in-process and
// the database must not be opened by more than one LevelDBStore at a time.
type LevelDBStore struct {
	db *leveldb.DB
	mu sync.Mutex
}

// NewLevelDBStore wraps an open database. The caller owns db and closes it.
func NewLevelDBStore(db *leveldb.DB) *LevelDBStore {
	return &LevelDBStore{db: db}
}

func levelKey(key string) []byte { return []byte(levelPrefix + key) }

func (s *LevelDBStore) read(key string) (*levelRecord, error) {
	raw, err := s.db.Get(levelKey(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get %q: %w", key, err)
	}
	var rec levelRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("leveldb decode %q: %w", key, err)
	}
	return &rec, nil
}

// Get implements Store.
func (s *LevelDBStore) Get(_ context.Context, key string) (*Value, error) {
	rec, err := s.read(key)
	if err != nil {
		return nil, err
	}
	return &Value{Key: key, Data: rec.Data, Version: rec.Version, UpdatedAt: rec.UpdatedAt}, nil
}

// Put implements Store.
func (s *LevelDBStore) Put(_ context.Context, key string, data []byte, expectedVersion uint64) (uint64, error) {
	if key == "" {
		return 0, fmt.Errorf("put: empty key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current uint64
	rec, err := s.read(key)
	switch {
	case err == nil:
		current = rec.Version
	case !errors.Is(err, ErrNotFound):
		return 0, err
	}
	if current != expectedVersion {
		return 0, fmt.Errorf("put %q: %w (have %d, expected %d)", key, ErrVersionConflict, current, expectedVersion)
	}

	raw, err := json.Marshal(levelRecord{
		Data:      data,
		Version:   current + 1,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("leveldb encode %q: %w", key, err)
	}
	if err := s.db.Put(levelKey(key), raw, nil); err != nil {
		return 0, fmt.Errorf("leveldb put %q: %w", key, err)
	}
	return current + 1, nil
}

// Delete implements Store.
func (s *LevelDBStore) Delete(_ context.Context, key string, expectedVersion uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(key)
	if err != nil {
		return err
	}
	if rec.Version != expectedVersion {
		return fmt.Errorf("delete %q: %w (have %d, expected %d)", key, ErrVersionConflict, rec.Version, expectedVersion)
	}
	if err := s.db.Delete(levelKey(key), nil); err != nil {
		return fmt.Errorf("leveldb delete %q: %w", key, err)
	}
	return nil
}

// Keys implements Store. LevelDB iterates in byte order, so the result is
// already sorted.
func (s *LevelDBStore) Keys(_ context.Context, prefix string) ([]string, error) {
	iter := s.db.NewIterator(ldb_util.BytesPrefix(levelKey(prefix)), nil)
	defer iter.Release()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()[len(levelPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("leveldb keys %q: %w", prefix, err)
	}
	return keys, nil
}
