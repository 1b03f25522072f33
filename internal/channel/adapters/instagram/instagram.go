// Package instagram implements the channel adapter for Instagram direct
// messages (Meta Graph).
package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/channel/adapters/common"
	"github.com/multikanal/multikanal/internal/config"
)

// Instagram truncates direct messages well below the WhatsApp limit.
const maxMessageLength = 1000

var boldPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)

// Adapter implements channel.Adapter, channel.TypingNotifier, and
// channel.FeedbackRequester for Instagram.
type Adapter struct {
	logger  *slog.Logger
	client  *common.GraphClient
	baseURL string
	enabled bool
}

// New creates an Instagram adapter from the channel configuration.
func New(log *slog.Logger, cfg config.InstagramConfig) *Adapter {
	version := cfg.GraphVersion
	if version == "" {
		version = config.DefaultGraphVersion
	}
	return &Adapter{
		logger:  log.With(slog.String("adapter", "instagram")),
		client:  common.NewGraphClient(cfg.AccessToken, 30*time.Second),
		baseURL: fmt.Sprintf("https://graph.instagram.com/%s/%s/messages", version, cfg.ChatbotID),
		enabled: cfg.Enabled(),
	}
}

// Platform returns the Instagram platform identifier.
func (a *Adapter) Platform() channel.Platform {
	return channel.PlatformInstagram
}

func cleanID(userID string) string {
	return strings.TrimSpace(strings.ReplaceAll(userID, "@instagram.com", ""))
}

// SendMessage delivers text to the recipient, chunked to the Instagram limit.
func (a *Adapter) SendMessage(ctx context.Context, recipientID, text string, _ channel.ReplyContext) (channel.SendResult, error) {
	if !a.enabled {
		return channel.SendResult{}, fmt.Errorf("instagram adapter not configured")
	}
	text = boldPattern.ReplaceAllString(text, "*$1*")
	chunks := channel.ChunkText(text, maxMessageLength)
	result := channel.SendResult{Sent: true}
	for _, chunk := range chunks {
		payload := map[string]any{
			"recipient": map[string]any{"id": cleanID(recipientID)},
			"message":   map[string]any{"text": chunk},
		}
		resp, err := a.client.PostJSON(ctx, a.baseURL, payload)
		if err != nil {
			return channel.SendResult{}, err
		}
		if !resp.OK() {
			return channel.SendResult{}, fmt.Errorf("instagram send status %d", resp.StatusCode)
		}
		if id := resp.MessageID(); id != "" {
			result.MessageIDs = append(result.MessageIDs, id)
		}
	}
	return result, nil
}

func (a *Adapter) senderAction(ctx context.Context, recipientID, action string) error {
	if !a.enabled {
		return nil
	}
	payload := map[string]any{
		"recipient":     map[string]any{"id": cleanID(recipientID)},
		"sender_action": action,
	}
	resp, err := a.client.PostJSON(ctx, a.baseURL, payload)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("instagram %s status %d", action, resp.StatusCode)
	}
	return nil
}

// SendTypingOn shows the typing indicator.
func (a *Adapter) SendTypingOn(ctx context.Context, recipientID, _ string) error {
	return a.senderAction(ctx, recipientID, "typing_on")
}

// SendTypingOff hides the typing indicator.
func (a *Adapter) SendTypingOff(ctx context.Context, recipientID string) error {
	return a.senderAction(ctx, recipientID, "typing_off")
}

// SendFeedbackRequest asks the user to rate the answer with quick replies.
func (a *Adapter) SendFeedbackRequest(ctx context.Context, recipientID, answerID string) (channel.SendResult, error) {
	if !a.enabled {
		return channel.SendResult{Sent: false}, nil
	}
	payload := map[string]any{
		"recipient": map[string]any{"id": cleanID(recipientID)},
		"message": map[string]any{
			"text": "Apakah jawaban ini membantu?",
			"quick_replies": []map[string]any{
				{"content_type": "text", "title": "Yes", "payload": "good-" + answerID},
				{"content_type": "text", "title": "No", "payload": "bad-" + answerID},
			},
		},
	}
	resp, err := a.client.PostJSON(ctx, a.baseURL, payload)
	if err != nil {
		return channel.SendResult{}, err
	}
	if !resp.OK() {
		return channel.SendResult{}, fmt.Errorf("instagram feedback request status %d", resp.StatusCode)
	}
	a.logger.Debug("feedback request sent", slog.String("recipient", recipientID))
	return channel.SendResult{Sent: true}, nil
}
