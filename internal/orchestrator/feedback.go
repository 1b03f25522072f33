package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/multikanal/multikanal/internal/channel"
)

// Rating values forwarded to the backend feedback endpoint.
const (
	RatingPositive = "positive"
	RatingNegative = "negative"
)

// ParseFeedbackPayload splits an encoded quick-reply token ("like-123",
// "bad-42") into a rating and the answered message id. ok is false for
// malformed payloads, which callers drop silently.
func ParseFeedbackPayload(payload string) (rating, messageID string, ok bool) {
	payload = strings.TrimSpace(payload)
	idx := strings.Index(payload, "-")
	if idx <= 0 || idx == len(payload)-1 {
		return "", "", false
	}
	messageID = payload[idx+1:]
	switch strings.ToLower(payload[:idx]) {
	case "like", "good":
		return RatingPositive, messageID, true
	case "dislike", "bad":
		return RatingNegative, messageID, true
	}
	return "", "", false
}

// HandleFeedback processes a quick-reply feedback event: it forwards the
// rating to the backend and acknowledges the user. Feedback is best-effort
// telemetry, never critical path; malformed payloads are dropped.
func (o *Orchestrator) HandleFeedback(ctx context.Context, msg channel.InboundMessage) {
	rating, messageID, ok := ParseFeedbackPayload(msg.Meta.FeedbackPayload)
	if !ok {
		o.logger.Debug("malformed feedback payload dropped",
			slog.String("payload", msg.Meta.FeedbackPayload))
		return
	}

	conversationID := msg.ConversationID
	if conversationID == "" {
		id, found, err := o.sessions.GetActive(ctx, msg.Platform, msg.ExternalUserID)
		if err != nil {
			o.logger.Error("session lookup for feedback failed", slog.Any("error", err))
		} else if found {
			conversationID = id
		}
	}

	if err := o.backend.SendFeedback(ctx, conversationID, messageID, rating); err != nil {
		o.logger.Error("forward feedback failed",
			slog.String("message_id", messageID),
			slog.String("rating", rating),
			slog.Any("error", err))
		return
	}
	o.logger.Info("feedback forwarded",
		slog.String("platform", msg.Platform.String()),
		slog.String("rating", rating),
		slog.String("message_id", messageID))

	if adapter, ok := o.registry.Get(msg.Platform); ok {
		if _, err := adapter.SendMessage(ctx, msg.ExternalUserID, feedbackAck, channel.ReplyContext{}); err != nil {
			o.logger.Debug("feedback ack failed", slog.Any("error", err))
		}
	}
}
