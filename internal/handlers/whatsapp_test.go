package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/config"
)

const waTextPayload = `{
  "entry": [{
    "changes": [{
      "value": {
        "contacts": [{"wa_id": "628111", "profile": {"name": "Budi"}}],
        "messages": [{"from": "628111", "id": "wamid.1", "type": "text", "text": {"body": "halo"}}]
      }
    }]
  }]
}`

const waButtonPayload = `{
  "entry": [{
    "changes": [{
      "value": {
        "messages": [{
          "from": "628111", "id": "wamid.2", "type": "interactive",
          "interactive": {"type": "button_reply", "button_reply": {"id": "like-msg-7", "title": "Membantu"}}
        }]
      }
    }]
  }]
}`

func TestParseWhatsAppPayload_TextMessage(t *testing.T) {
	t.Parallel()

	var payload whatsAppPayload
	if err := json.Unmarshal([]byte(waTextPayload), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	msgs := ParseWhatsAppPayload(payload)
	if len(msgs) != 1 {
		t.Fatalf("want 1 message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.Platform != channel.PlatformWhatsApp || msg.ExternalUserID != "628111" {
		t.Fatalf("identity: %+v", msg)
	}
	if msg.Query != "halo" || msg.Meta.MessageID != "wamid.1" || msg.Meta.SenderName != "Budi" {
		t.Fatalf("content: %+v", msg)
	}
	if msg.IsFeedback() {
		t.Fatal("text message marked as feedback")
	}
}

func TestParseWhatsAppPayload_ButtonReply(t *testing.T) {
	t.Parallel()

	var payload whatsAppPayload
	if err := json.Unmarshal([]byte(waButtonPayload), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	msgs := ParseWhatsAppPayload(payload)
	if len(msgs) != 1 || !msgs[0].IsFeedback() {
		t.Fatalf("msgs: %+v", msgs)
	}
	if msgs[0].Meta.FeedbackPayload != "like-msg-7" {
		t.Fatalf("payload: %q", msgs[0].Meta.FeedbackPayload)
	}
}

func TestParseWhatsAppPayload_IgnoresStatusOnlyEvents(t *testing.T) {
	t.Parallel()

	var payload whatsAppPayload
	_ = json.Unmarshal([]byte(`{"entry":[{"changes":[{"value":{}}]}]}`), &payload)
	if msgs := ParseWhatsAppPayload(payload); len(msgs) != 0 {
		t.Fatalf("status event produced messages: %+v", msgs)
	}
}

func TestWhatsAppVerify(t *testing.T) {
	t.Parallel()

	h := NewWhatsAppWebhookHandler(testLogger, config.WhatsAppConfig{VerifyToken: "tok"}, newFakeProcessor())
	e := echo.New()

	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", "tok")
	q.Set("hub.challenge", "12345")
	req := httptest.NewRequest(http.MethodGet, "/whatsapp/webhook?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	if err := h.Verify(e.NewContext(req, rec)); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "12345" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}

	q.Set("hub.verify_token", "wrong")
	req = httptest.NewRequest(http.MethodGet, "/whatsapp/webhook?"+q.Encode(), nil)
	rec = httptest.NewRecorder()
	err := h.Verify(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %v", err)
	}
}

func TestWhatsAppReceive_DispatchesInBackground(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	h := NewWhatsAppWebhookHandler(testLogger, config.WhatsAppConfig{VerifyToken: "tok"}, proc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(waTextPayload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Receive(e.NewContext(req, rec)); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	proc.wait(t)
	processed, feedback := proc.snapshot()
	if len(processed) != 1 || len(feedback) != 0 {
		t.Fatalf("processed=%d feedback=%d", len(processed), len(feedback))
	}
}

func TestWhatsAppReceive_RoutesFeedback(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	h := NewWhatsAppWebhookHandler(testLogger, config.WhatsAppConfig{VerifyToken: "tok"}, proc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(waButtonPayload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Receive(e.NewContext(req, rec)); err != nil {
		t.Fatalf("receive: %v", err)
	}
	proc.wait(t)
	processed, feedback := proc.snapshot()
	if len(processed) != 0 || len(feedback) != 1 {
		t.Fatalf("processed=%d feedback=%d", len(processed), len(feedback))
	}
}
