// Package whatsapp implements the channel adapter for the WhatsApp Business
// Cloud API (Meta Graph).
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/channel/adapters/common"
	"github.com/multikanal/multikanal/internal/config"
)

const maxMessageLength = 4096

var (
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	strikePattern = regexp.MustCompile(`~~(.*?)~~`)
)

// Adapter implements channel.Adapter, channel.TypingNotifier,
// channel.ReadMarker, and channel.FeedbackRequester for WhatsApp.
type Adapter struct {
	logger  *slog.Logger
	client  *common.GraphClient
	baseURL string
	enabled bool
}

// New creates a WhatsApp adapter from the channel configuration.
func New(log *slog.Logger, cfg config.WhatsAppConfig) *Adapter {
	version := cfg.GraphVersion
	if version == "" {
		version = config.DefaultGraphVersion
	}
	return &Adapter{
		logger:  log.With(slog.String("adapter", "whatsapp")),
		client:  common.NewGraphClient(cfg.AccessToken, 30*time.Second),
		baseURL: fmt.Sprintf("https://graph.facebook.com/%s/%s/messages", version, cfg.PhoneNumberID),
		enabled: cfg.Enabled(),
	}
}

// Platform returns the WhatsApp platform identifier.
func (a *Adapter) Platform() channel.Platform {
	return channel.PlatformWhatsApp
}

// convertMarkdown rewrites common markdown to WhatsApp's formatting dialect.
func convertMarkdown(text string) string {
	text = boldPattern.ReplaceAllString(text, "*$1*")
	text = strikePattern.ReplaceAllString(text, "~$1~")
	return text
}

// SendMessage delivers text to the recipient, chunked to the WhatsApp limit,
// chunks in order.
func (a *Adapter) SendMessage(ctx context.Context, recipientID, text string, reply channel.ReplyContext) (channel.SendResult, error) {
	if !a.enabled {
		return channel.SendResult{}, fmt.Errorf("whatsapp adapter not configured")
	}
	chunks := channel.ChunkText(convertMarkdown(text), maxMessageLength)
	result := channel.SendResult{Sent: true}
	for _, chunk := range chunks {
		payload := map[string]any{
			"messaging_product": "whatsapp",
			"to":                recipientID,
			"type":              "text",
			"text":              map[string]any{"body": chunk},
		}
		if reply.SourceMessageID != "" {
			payload["context"] = map[string]any{"message_id": reply.SourceMessageID}
		}
		resp, err := a.client.PostJSON(ctx, a.baseURL, payload)
		if err != nil {
			return channel.SendResult{}, err
		}
		if !resp.OK() {
			return channel.SendResult{}, fmt.Errorf("whatsapp send status %d", resp.StatusCode)
		}
		if id := resp.MessageID(); id != "" {
			result.MessageIDs = append(result.MessageIDs, id)
		}
	}
	return result, nil
}

// SendTypingOn shows a typing indicator; WhatsApp requires the triggering
// message id and marks it read as a side effect.
func (a *Adapter) SendTypingOn(ctx context.Context, recipientID, messageID string) error {
	if !a.enabled || messageID == "" {
		return nil
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
		"typing_indicator":  map[string]any{"type": "text"},
	}
	resp, err := a.client.PostJSON(ctx, a.baseURL, payload)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("whatsapp typing status %d", resp.StatusCode)
	}
	return nil
}

// SendTypingOff is a no-op; WhatsApp clears the indicator automatically.
func (a *Adapter) SendTypingOff(_ context.Context, _ string) error {
	return nil
}

// MarkAsRead marks the inbound message read on the platform.
func (a *Adapter) MarkAsRead(ctx context.Context, messageID string) error {
	if !a.enabled {
		return nil
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	resp, err := a.client.PostJSON(ctx, a.baseURL, payload)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("whatsapp mark read status %d", resp.StatusCode)
	}
	return nil
}

// SendFeedbackRequest asks the user to rate the answer with reply buttons.
func (a *Adapter) SendFeedbackRequest(ctx context.Context, recipientID, answerID string) (channel.SendResult, error) {
	if !a.enabled {
		return channel.SendResult{Sent: false}, nil
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipientID,
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "button",
			"body": map[string]any{"text": "Apakah jawaban ini membantu?"},
			"action": map[string]any{
				"buttons": []map[string]any{
					{"type": "reply", "reply": map[string]any{"id": "like-" + answerID, "title": "Membantu"}},
					{"type": "reply", "reply": map[string]any{"id": "dislike-" + answerID, "title": "Tidak"}},
				},
			},
		},
	}
	resp, err := a.client.PostJSON(ctx, a.baseURL, payload)
	if err != nil {
		return channel.SendResult{}, err
	}
	if !resp.OK() {
		return channel.SendResult{}, fmt.Errorf("whatsapp feedback request status %d", resp.StatusCode)
	}
	a.logger.Debug("feedback request sent", slog.String("recipient", recipientID))
	return channel.SendResult{Sent: true}, nil
}
