// Package channel provides a unified abstraction for multi-platform messaging
// channels. It defines the canonical inbound message, the adapter interfaces,
// and a registry for channel adapters such as WhatsApp, Instagram, and email.
package channel

import "strings"

// Platform identifies a messaging surface (e.g., "whatsapp", "email").
type Platform string

const (
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformInstagram Platform = "instagram"
	PlatformTelegram  Platform = "telegram"
	PlatformEmail     Platform = "email"
)

// String returns the platform as a plain string.
func (p Platform) String() string {
	return string(p)
}

// ParsePlatform normalizes a raw string into a Platform.
func ParsePlatform(raw string) Platform {
	return Platform(strings.TrimSpace(strings.ToLower(raw)))
}

// Meta carries the channel-specific fields of an inbound message. Fields are
// optional and vary by platform; email populates the header-derived fields,
// chat platforms populate message id and feedback payloads.
type Meta struct {
	// Subject is the email subject line.
	Subject string `json:"subject,omitempty"`
	// SenderName is the sender's display name when the platform exposes one.
	SenderName string `json:"sender_name,omitempty"`
	// MessageID is the wire-level message identifier (WhatsApp message id,
	// RFC 5322 Message-ID, ...). Used for read receipts and reply context.
	MessageID string `json:"message_id,omitempty"`
	// GraphMessageID is the Microsoft Graph message id for Graph mailboxes.
	GraphMessageID string `json:"graph_message_id,omitempty"`
	// InReplyTo and References are the email threading headers.
	InReplyTo  string `json:"in_reply_to,omitempty"`
	References string `json:"references,omitempty"`
	// ThreadKey is the derived email thread correlation key.
	ThreadKey string `json:"thread_key,omitempty"`
	// FeedbackPayload is the encoded "rating-messageId" token carried by a
	// quick-reply button press. Non-empty marks the message as a feedback event.
	FeedbackPayload string `json:"feedback_payload,omitempty"`
}

// InboundMessage is the canonical message every channel feeds the orchestrator.
type InboundMessage struct {
	Platform       Platform `json:"platform"`
	ExternalUserID string   `json:"external_user_id"`
	Query          string   `json:"query"`
	// ConversationID is set when the caller has already resolved the backend
	// conversation; the orchestrator skips identity resolution in that case.
	ConversationID string `json:"conversation_id,omitempty"`
	Meta           Meta   `json:"metadata,omitempty"`
}

// EventID returns the externally-unique identifier used for deduplication,
// preferring the Graph id over the wire message id.
func (m InboundMessage) EventID() string {
	if id := strings.TrimSpace(m.Meta.GraphMessageID); id != "" {
		return id
	}
	return strings.TrimSpace(m.Meta.MessageID)
}

// IsFeedback reports whether the message is a quick-reply feedback event
// rather than free text.
func (m InboundMessage) IsFeedback() bool {
	return strings.TrimSpace(m.Meta.FeedbackPayload) != ""
}

// DeriveThreadKey computes the email thread correlation key: the In-Reply-To
// header when present, otherwise the message's own Message-ID (the message is
// establishing a new thread that future replies will reference).
func DeriveThreadKey(inReplyTo, messageID string) string {
	if key := strings.TrimSpace(inReplyTo); key != "" {
		return key
	}
	return strings.TrimSpace(messageID)
}

// ReplyContext carries channel-specific reply metadata for an outbound send.
// Chat platforms use SourceMessageID for threaded replies; the mailbox adapter
// uses the header fields to keep the reply in the originating email thread.
type ReplyContext struct {
	Subject         string `json:"subject,omitempty"`
	InReplyTo       string `json:"in_reply_to,omitempty"`
	References      string `json:"references,omitempty"`
	GraphMessageID  string `json:"graph_message_id,omitempty"`
	SourceMessageID string `json:"source_message_id,omitempty"`
}

// SendResult reports the outcome of an outbound send. Sent is false for
// channels that do not support the requested operation.
type SendResult struct {
	Sent       bool     `json:"sent"`
	MessageIDs []string `json:"message_ids,omitempty"`
}
