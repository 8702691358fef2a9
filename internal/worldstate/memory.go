package worldstate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]*Value
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]*Value)}
}

// Get implements Store. The returned value does not alias stored memory.
func (s *MemoryStore) Get(_ context.Context, key string) (*Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := *v
	out.Data = append([]byte(nil), v.Data...)
	return &out, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, expectedVersion uint64) (uint64, error) {
	if key == "" {
		return 0, fmt.Errorf("put: empty key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current uint64
	if v, ok := s.values[key]; ok {
		current = v.Version
	}
	if current != expectedVersion {
		return 0, fmt.Errorf("put %q: %w (have %d, expected %d)", key, ErrVersionConflict, current, expectedVersion)
	}

	s.values[key] = &Value{
		Key:       key,
		Data:      append([]byte(nil), data...),
		Version:   current + 1,
		UpdatedAt: time.Now().UTC(),
	}
	return current + 1, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string, expectedVersion uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return ErrNotFound
	}
	if v.Version != expectedVersion {
		return fmt.Errorf("delete %q: %w (have %d, expected %d)", key, ErrVersionConflict, v.Version, expectedVersion)
	}
	delete(s.values, key)
	return nil
}

// Keys implements Store.
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
