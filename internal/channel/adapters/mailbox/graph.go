package mailbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/config"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphSender delivers replies through the Microsoft Graph sendMail and reply
// APIs on behalf of a mailbox user. When the reply context carries a Graph
// message id the reply endpoint keeps the message in the original thread.
type GraphSender struct {
	cfg    config.GraphConfig
	client *http.Client
}

// NewGraphSender creates a GraphSender using the client-credentials flow.
// The oauth2 transport caches and refreshes tokens automatically.
func NewGraphSender(ctx context.Context, cfg config.GraphConfig) *GraphSender {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return &GraphSender{cfg: cfg, client: cc.Client(ctx)}
}

func (s *GraphSender) SendEmail(ctx context.Context, to, subject, body string, reply channel.ReplyContext) (string, error) {
	if reply.GraphMessageID != "" {
		return "", s.replyToMessage(ctx, reply.GraphMessageID, body)
	}
	return "", s.sendMail(ctx, to, subject, body)
}

func (s *GraphSender) replyToMessage(ctx context.Context, graphMessageID, comment string) error {
	url := fmt.Sprintf("%s/users/%s/messages/%s/reply", graphBaseURL, s.cfg.MailboxUser, graphMessageID)
	return s.post(ctx, url, map[string]any{"comment": comment})
}

func (s *GraphSender) sendMail(ctx context.Context, to, subject, body string) error {
	url := fmt.Sprintf("%s/users/%s/sendMail", graphBaseURL, s.cfg.MailboxUser)
	return s.post(ctx, url, map[string]any{
		"message": map[string]any{
			"subject": subject,
			"body": map[string]any{
				"contentType": "Text",
				"content":     body,
			},
			"toRecipients": []map[string]any{
				{"emailAddress": map[string]any{"address": to}},
			},
		},
		"saveToSentItems": true,
	})
}

func (s *GraphSender) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode graph payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("graph send status %d", resp.StatusCode)
	}
	return nil
}
