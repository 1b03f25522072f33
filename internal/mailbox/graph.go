package mailbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/multikanal/multikanal/internal/config"
)

const (
	graphBaseURL  = "https://graph.microsoft.com/v1.0"
	graphPageSize = 25
)

// GraphPoller watches a Microsoft 365 mailbox through the Graph API. Unread
// inbox messages are canonicalized and handed to the handler, then marked
// read so they are not fetched again.
type GraphPoller struct {
	logger   *slog.Logger
	cfg      config.GraphConfig
	interval time.Duration
	handler  Handler
	client   *http.Client
}

func NewGraphPoller(ctx context.Context, log *slog.Logger, cfg config.GraphConfig, interval time.Duration, handler Handler) *GraphPoller {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return &GraphPoller{
		logger:   log.With(slog.String("poller", "graph")),
		cfg:      cfg,
		interval: interval,
		handler:  handler,
		client:   cc.Client(ctx),
	}
}

// Run polls until the context is cancelled.
func (p *GraphPoller) Run(ctx context.Context) {
	for {
		if err := p.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("graph poll failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.interval):
		}
	}
}

type graphMessage struct {
	ID                string    `json:"id"`
	InternetMessageID string    `json:"internetMessageId"`
	Subject           string    `json:"subject"`
	ReceivedDateTime  time.Time `json:"receivedDateTime"`
	From              struct {
		EmailAddress struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"emailAddress"`
	} `json:"from"`
	Body struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	InternetMessageHeaders []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"internetMessageHeaders"`
}

func (p *GraphPoller) poll(ctx context.Context) error {
	messages, err := p.listUnread(ctx)
	if err != nil {
		return err
	}
	for _, gm := range messages {
		email := p.toEmail(gm)
		msg, ok := Canonicalize(email)
		if ok {
			if err := p.handler(ctx, msg); err != nil {
				p.logger.Error("inbound handler failed",
					slog.String("graph_message_id", gm.ID), slog.Any("error", err))
			}
		}
		// Mark read regardless of outcome: skipped system mail and duplicates
		// must not be re-fetched every cycle.
		if err := p.markRead(ctx, gm.ID); err != nil {
			p.logger.Warn("mark read failed",
				slog.String("graph_message_id", gm.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (p *GraphPoller) listUnread(ctx context.Context) ([]graphMessage, error) {
	u := fmt.Sprintf("%s/users/%s/mailFolders/inbox/messages?%s",
		graphBaseURL, url.PathEscape(p.cfg.MailboxUser), url.Values{
			"$filter":  {"isRead eq false"},
			"$top":     {fmt.Sprintf("%d", graphPageSize)},
			"$orderby": {"receivedDateTime asc"},
			"$select":  {"id,internetMessageId,subject,from,body,receivedDateTime,internetMessageHeaders"},
		}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build graph request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list unread: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read graph response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph list status %d", resp.StatusCode)
	}
	var payload struct {
		Value []graphMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode graph response: %w", err)
	}
	return payload.Value, nil
}

func (p *GraphPoller) markRead(ctx context.Context, messageID string) error {
	u := fmt.Sprintf("%s/users/%s/messages/%s",
		graphBaseURL, url.PathEscape(p.cfg.MailboxUser), url.PathEscape(messageID))
	body, _ := json.Marshal(map[string]any{"isRead": true})
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("graph patch status %d", resp.StatusCode)
	}
	return nil
}

func (p *GraphPoller) toEmail(gm graphMessage) Email {
	e := Email{
		MessageID:      gm.InternetMessageID,
		GraphMessageID: gm.ID,
		From:           gm.From.EmailAddress.Address,
		SenderName:     gm.From.EmailAddress.Name,
		Subject:        gm.Subject,
		Date:           gm.ReceivedDateTime,
	}
	if strings.EqualFold(gm.Body.ContentType, "html") {
		e.HTMLBody = gm.Body.Content
	} else {
		e.TextBody = gm.Body.Content
	}
	for _, h := range gm.InternetMessageHeaders {
		switch {
		case strings.EqualFold(h.Name, "In-Reply-To"):
			e.InReplyTo = h.Value
		case strings.EqualFold(h.Name, "References"):
			e.References = h.Value
		}
	}
	return e
}
