package dedup

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/multikanal/multikanal/internal/channel"
)

// PGStore persists dedup records in the processed_events table. Records are
// append-only; retention is handled outside the service if storage demands it.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) IsProcessed(ctx context.Context, eventID string, platform channel.Platform) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM processed_events WHERE event_id = $1 AND platform = $2
		)`,
		eventID, platform.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed event: %w", err)
	}
	return exists, nil
}

// MarkProcessed inserts the record with ON CONFLICT DO NOTHING; the affected
// row count distinguishes the first caller from redeliveries.
func (s *PGStore) MarkProcessed(ctx context.Context, eventID string, platform channel.Platform) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO processed_events (event_id, platform, processed_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (event_id, platform) DO NOTHING`,
		eventID, platform.String(),
	)
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
