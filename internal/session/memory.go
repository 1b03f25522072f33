package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/multikanal/multikanal/internal/channel"
)

type memoryKey struct {
	platform channel.Platform
	userID   string
}

// MemoryStore is an in-process Store for tests and single-node deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[memoryKey]Entry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[memoryKey]Entry{},
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) GetActive(_ context.Context, platform channel.Platform, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[memoryKey{platform, userID}]
	if !ok {
		return "", false, nil
	}
	return entry.ConversationID, true, nil
}

func (s *MemoryStore) Save(_ context.Context, platform channel.Platform, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[memoryKey{platform, userID}] = Entry{
		Platform:       platform,
		ExternalUserID: userID,
		ConversationID: conversationID,
		LastActiveAt:   s.now(),
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, platform channel.Platform, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, memoryKey{platform, userID})
	return nil
}

func (s *MemoryStore) ListIdle(_ context.Context, threshold time.Duration, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-threshold)
	var entries []Entry
	for _, entry := range s.entries {
		if entry.LastActiveAt.Before(cutoff) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastActiveAt.Before(entries[j].LastActiveAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
