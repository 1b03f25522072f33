// Package common holds helpers shared by the Meta Graph API adapters.
package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GraphClient posts JSON payloads to a Meta Graph API messages endpoint.
type GraphClient struct {
	http  *http.Client
	token string
}

// NewGraphClient creates a GraphClient with a bounded request timeout.
func NewGraphClient(token string, timeout time.Duration) *GraphClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GraphClient{
		http:  &http.Client{Timeout: timeout},
		token: token,
	}
}

// GraphResponse is the raw outcome of a Graph call.
type GraphResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the call returned 2xx.
func (r GraphResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// MessageID extracts the first message id from a Graph send response, if any.
func (r GraphResponse) MessageID() string {
	var parsed struct {
		MessageID string `json:"message_id"`
		Messages  []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(r.Body, &parsed); err != nil {
		return ""
	}
	if parsed.MessageID != "" {
		return parsed.MessageID
	}
	if len(parsed.Messages) > 0 {
		return parsed.Messages[0].ID
	}
	return ""
}

// PostJSON sends the payload as a bearer-authenticated JSON POST.
func (c *GraphClient) PostJSON(ctx context.Context, url string, payload any) (GraphResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return GraphResponse{}, fmt.Errorf("encode graph payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return GraphResponse{}, fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return GraphResponse{}, fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return GraphResponse{}, fmt.Errorf("read graph response: %w", err)
	}
	return GraphResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}
