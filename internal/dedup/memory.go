package dedup

import (
	"context"
	"sync"

	"github.com/multikanal/multikanal/internal/channel"
)

type key struct {
	eventID  string
	platform channel.Platform
}

// MemoryStore is an in-process Store for tests and single-node deployments.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[key]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: map[key]struct{}{}}
}

func (s *MemoryStore) IsProcessed(_ context.Context, eventID string, platform channel.Platform) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key{eventID, platform}]
	return ok, nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, eventID string, platform channel.Platform) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{eventID, platform}
	if _, ok := s.seen[k]; ok {
		return false, nil
	}
	s.seen[k] = struct{}{}
	return true, nil
}
