// Package dedup tracks externally-unique event identifiers that have already
// been processed, so re-delivered webhook and poll events are dropped.
package dedup

import (
	"context"

	"github.com/multikanal/multikanal/internal/channel"
)

// Store is the deduplication contract. MarkProcessed is the atomic
// check-and-mark: it returns true exactly once per (eventID, platform) key,
// even under concurrent calls for the same key.
type Store interface {
	// IsProcessed reports whether the event was already accepted for processing.
	IsProcessed(ctx context.Context, eventID string, platform channel.Platform) (bool, error)
	// MarkProcessed records the event and reports whether this call was the
	// first to do so. A single conditional insert, never a read then write.
	MarkProcessed(ctx context.Context, eventID string, platform channel.Platform) (bool, error)
}
