// Package chatbot is the HTTP client for the conversational-AI backend.
// The backend is a black box: query in, answer plus conversation id out.
package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/multikanal/multikanal/internal/channel"
)

const (
	fallbackBackendDown = "Maaf, sedang ada gangguan pada sistem AI kami."
	fallbackUnexpected  = "Maaf, terjadi kesalahan yang tidak terduga."
)

// AskRequest is one backend turn. ConversationID is empty for a new dialogue.
type AskRequest struct {
	Query          string
	ConversationID string
	Platform       channel.Platform
	UserID         string
	UserName       string
}

// Reply is the backend's response. Errors never escape this boundary: a failed
// call yields Err non-empty together with a user-facing fallback Answer, and
// the orchestrator decides what to do with it.
type Reply struct {
	Answer         string
	ConversationID string
	// MessageID identifies the answered turn; set when the backend wants
	// feedback solicited for it.
	MessageID   string
	AskFeedback bool
	Err         string
	Raw         json.RawMessage
}

// Failed reports whether the backend turn failed.
func (r Reply) Failed() bool {
	return r.Err != ""
}

// Client talks to the backend ask endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client with a bounded per-call timeout.
func NewClient(log *slog.Logger, baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  log.With(slog.String("component", "chatbot")),
	}
}

type askPayload struct {
	Query          string         `json:"query"`
	Inputs         map[string]any `json:"inputs"`
	ConversationID string         `json:"conversation_id"`
	Platform       string         `json:"platform"`
	ExternalUserID string         `json:"external_user_id"`
	UserName       string         `json:"user_name"`
}

type askResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	AskFeedback    bool   `json:"ask_feedback"`
	Error          string `json:"error,omitempty"`
}

// Ask performs one backend turn.
func (c *Client) Ask(ctx context.Context, req AskRequest) Reply {
	userName := req.UserName
	if userName == "" {
		userName = "User"
	}
	payload, err := json.Marshal(askPayload{
		Query:          req.Query,
		Inputs:         map[string]any{},
		ConversationID: req.ConversationID,
		Platform:       req.Platform.String(),
		ExternalUserID: req.UserID,
		UserName:       userName,
	})
	if err != nil {
		return Reply{Err: err.Error(), Answer: fallbackUnexpected}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Reply{Err: err.Error(), Answer: fallbackUnexpected}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-internal-key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("backend call failed", slog.Any("error", err))
		return Reply{Err: err.Error(), Answer: fallbackBackendDown}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("read backend response failed", slog.Any("error", err))
		return Reply{Err: err.Error(), Answer: fallbackBackendDown}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("backend returned non-2xx",
			slog.Int("status", resp.StatusCode))
		return Reply{
			Err:    fmt.Sprintf("backend status %d", resp.StatusCode),
			Answer: fallbackBackendDown,
			Raw:    body,
		}
	}

	var parsed askResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Error("decode backend response failed", slog.Any("error", err))
		return Reply{Err: err.Error(), Answer: fallbackUnexpected, Raw: body}
	}
	if parsed.Error != "" {
		answer := parsed.Answer
		if answer == "" {
			answer = fallbackBackendDown
		}
		return Reply{Err: parsed.Error, Answer: answer, Raw: body}
	}
	return Reply{
		Answer:         parsed.Answer,
		ConversationID: parsed.ConversationID,
		MessageID:      parsed.MessageID,
		AskFeedback:    parsed.AskFeedback,
		Raw:            body,
	}
}

// SendFeedback forwards a user rating for an answered turn to the backend's
// feedback endpoint. Feedback is best-effort telemetry.
func (c *Client) SendFeedback(ctx context.Context, conversationID, messageID, rating string) error {
	payload, err := json.Marshal(map[string]string{
		"conversation_id": conversationID,
		"message_id":      messageID,
		"rating":          rating,
	})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/feedback", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-internal-key", c.apiKey)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("feedback status %d", resp.StatusCode)
	}
	return nil
}
