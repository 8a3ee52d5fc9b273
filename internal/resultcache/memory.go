package resultcache

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(e), nil
}

func (s *MemoryStore) Put(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Key] = clone(e)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func clone(e *Entry) *Entry {
	c := *e
	c.Outputs = maps.Clone(e.Outputs)
	return &c
}

var _ Store = (*MemoryStore)(nil)
