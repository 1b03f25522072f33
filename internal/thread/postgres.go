package thread

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists thread mappings in the email_threads table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Resolve(ctx context.Context, threadKey string) (Mapping, bool, error) {
	var m Mapping
	err := s.pool.QueryRow(ctx,
		`SELECT thread_key, conversation_id, subject, in_reply_to, reference_ids
		 FROM email_threads
		 WHERE thread_key = $1`,
		threadKey,
	).Scan(&m.ThreadKey, &m.ConversationID, &m.Subject, &m.InReplyTo, &m.References)
	if errors.Is(err, pgx.ErrNoRows) {
		return Mapping{}, false, nil
	}
	if err != nil {
		return Mapping{}, false, fmt.Errorf("resolve thread: %w", err)
	}
	return m, true, nil
}

// Save inserts the mapping once; ON CONFLICT DO NOTHING enforces the
// first-write-wins policy so a concurrent second turn cannot rebind the thread.
func (s *PGStore) Save(ctx context.Context, m Mapping) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO email_threads (thread_key, conversation_id, subject, in_reply_to, reference_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (thread_key) DO NOTHING`,
		m.ThreadKey, m.ConversationID, m.Subject, m.InReplyTo, m.References,
	)
	if err != nil {
		return fmt.Errorf("save thread: %w", err)
	}
	return nil
}
