// Package thread correlates email reply chains to backend conversations.
// Email has no session concept; the stable identity is a thread key derived
// from the In-Reply-To or Message-ID header, not the sender address.
package thread

import "context"

// Mapping is one thread correlation row. The header fields are what the
// mailbox adapter needs to reply inside the original thread.
type Mapping struct {
	ThreadKey      string
	ConversationID string
	Subject        string
	InReplyTo      string
	References     string
}

// Store is the thread correlation contract. Save is write-once per thread
// key: the first write wins and later writes for the same key are no-ops.
// Thread mappings never expire; only chat sessions time out.
type Store interface {
	Resolve(ctx context.Context, threadKey string) (Mapping, bool, error)
	Save(ctx context.Context, m Mapping) error
}
