package channel

import "context"

// Adapter is the base interface every channel adapter must implement.
// SendMessage must chunk text exceeding the channel's maximum message length
// at safe boundaries and deliver the chunks in order.
type Adapter interface {
	Platform() Platform
	SendMessage(ctx context.Context, recipientID, text string, reply ReplyContext) (SendResult, error)
}

// TypingNotifier is an adapter capable of typing indicators. Calls are
// fire-and-forget: the orchestrator logs and drops any returned error.
type TypingNotifier interface {
	SendTypingOn(ctx context.Context, recipientID, messageID string) error
	SendTypingOff(ctx context.Context, recipientID string) error
}

// ReadMarker is an optional capability for marking the source message read on
// the platform. Probed via the registry, not all adapters implement it.
type ReadMarker interface {
	MarkAsRead(ctx context.Context, messageID string) error
}

// FeedbackRequester is an adapter capable of soliciting feedback through an
// interactive quick-reply prompt.
type FeedbackRequester interface {
	SendFeedbackRequest(ctx context.Context, recipientID, answerID string) (SendResult, error)
}
