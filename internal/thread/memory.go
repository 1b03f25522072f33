package thread

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-node deployments.
type MemoryStore struct {
	mu       sync.Mutex
	mappings map[string]Mapping
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mappings: map[string]Mapping{}}
}

func (s *MemoryStore) Resolve(_ context.Context, threadKey string) (Mapping, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[threadKey]
	return m, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, m Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mappings[m.ThreadKey]; ok {
		return nil
	}
	s.mappings[m.ThreadKey] = m
	return nil
}
