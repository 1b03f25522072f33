// Package session maps (platform, external user id) to the active backend
// conversation, with last-activity tracking for the timeout sweeper.
package session

import (
	"context"
	"time"

	"github.com/multikanal/multikanal/internal/channel"
)

// Entry is one active session row.
type Entry struct {
	Platform       channel.Platform
	ExternalUserID string
	ConversationID string
	LastActiveAt   time.Time
}

// Store is the session contract. Save is an upsert that resets the activity
// timestamp; Clear is idempotent and clearing an absent key is a no-op.
type Store interface {
	GetActive(ctx context.Context, platform channel.Platform, userID string) (string, bool, error)
	Save(ctx context.Context, platform channel.Platform, userID, conversationID string) error
	Clear(ctx context.Context, platform channel.Platform, userID string) error
	// ListIdle returns at most limit sessions idle longer than threshold.
	// Ordering within the page is implementation-defined.
	ListIdle(ctx context.Context, threshold time.Duration, limit int) ([]Entry, error)
}
