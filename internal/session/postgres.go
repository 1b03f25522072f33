package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/multikanal/multikanal/internal/channel"
)

// PGStore persists sessions in the active_conversations table, one row per
// (platform, external user id) with last-write-wins upsert semantics.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) GetActive(ctx context.Context, platform channel.Platform, userID string) (string, bool, error) {
	var conversationID string
	err := s.pool.QueryRow(ctx,
		`SELECT conversation_id
		 FROM active_conversations
		 WHERE platform = $1 AND external_user_id = $2`,
		platform.String(), userID,
	).Scan(&conversationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get active session: %w", err)
	}
	return conversationID, true, nil
}

func (s *PGStore) Save(ctx context.Context, platform channel.Platform, userID, conversationID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO active_conversations (platform, external_user_id, conversation_id, last_active_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (platform, external_user_id)
		 DO UPDATE SET
			conversation_id = EXCLUDED.conversation_id,
			last_active_at = NOW()`,
		platform.String(), userID, conversationID,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PGStore) Clear(ctx context.Context, platform channel.Platform, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM active_conversations WHERE platform = $1 AND external_user_id = $2`,
		platform.String(), userID,
	)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *PGStore) ListIdle(ctx context.Context, threshold time.Duration, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT platform, external_user_id, conversation_id, last_active_at
		 FROM active_conversations
		 WHERE last_active_at < NOW() - make_interval(secs => $1)
		 ORDER BY last_active_at ASC
		 LIMIT $2`,
		threshold.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var platform string
		if err := rows.Scan(&platform, &e.ExternalUserID, &e.ConversationID, &e.LastActiveAt); err != nil {
			return nil, fmt.Errorf("scan idle session: %w", err)
		}
		e.Platform = channel.Platform(platform)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate idle sessions: %w", err)
	}
	return entries, nil
}
