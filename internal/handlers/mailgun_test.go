package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/config"
)

const mailgunSignKey = "key-test"

func signedMailgunForm(t *testing.T, from string) url.Values {
	t.Helper()
	form := url.Values{}
	form.Set("timestamp", "1693526400")
	form.Set("token", "tok-abc")
	mac := hmac.New(sha256.New, []byte(mailgunSignKey))
	mac.Write([]byte("1693526400tok-abc"))
	form.Set("signature", hex.EncodeToString(mac.Sum(nil)))

	form.Set("Message-Id", "<a1@mail.example.com>")
	form.Set("subject", "Kendala login")
	form.Set("sender", from)
	form.Set("from", "Budi <"+from+">")
	form.Set("stripped-text", "Saya tidak bisa masuk")
	return form
}

func postMailgunForm(t *testing.T, h *MailgunWebhookHandler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/email/mailgun/webhook",
		strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	if err := h.Receive(e.NewContext(req, rec)); err != nil {
		if httpErr, ok := err.(*echo.HTTPError); ok {
			rec.Code = httpErr.Code
			return rec
		}
		t.Fatalf("receive: %v", err)
	}
	return rec
}

func TestMailgunReceive_SignedEmailIsDispatched(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	h := NewMailgunWebhookHandler(testLogger,
		config.MailgunConfig{WebhookSignKey: mailgunSignKey}, proc)

	rec := postMailgunForm(t, h, signedMailgunForm(t, "budi@example.com"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	proc.wait(t)
	processed, _ := proc.snapshot()
	if len(processed) != 1 {
		t.Fatalf("processed: %d", len(processed))
	}
	msg := processed[0]
	if msg.Platform != channel.PlatformEmail || msg.ExternalUserID != "budi@example.com" {
		t.Fatalf("identity: %+v", msg)
	}
	if msg.Query != "Saya tidak bisa masuk" || msg.Meta.ThreadKey != "<a1@mail.example.com>" {
		t.Fatalf("content: %+v", msg)
	}
}

func TestMailgunReceive_BadSignature(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	h := NewMailgunWebhookHandler(testLogger,
		config.MailgunConfig{WebhookSignKey: mailgunSignKey}, proc)

	form := signedMailgunForm(t, "budi@example.com")
	form.Set("signature", "deadbeef")
	rec := postMailgunForm(t, h, form)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: %d", rec.Code)
	}
	if processed, _ := proc.snapshot(); len(processed) != 0 {
		t.Fatalf("forged request was dispatched: %+v", processed)
	}
}

func TestMailgunReceive_SystemSenderSkipped(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	h := NewMailgunWebhookHandler(testLogger,
		config.MailgunConfig{WebhookSignKey: mailgunSignKey}, proc)

	rec := postMailgunForm(t, h, signedMailgunForm(t, "mailer-daemon@example.com"))
	if rec.Code != http.StatusNotAcceptable {
		t.Fatalf("status: %d", rec.Code)
	}
	if processed, _ := proc.snapshot(); len(processed) != 0 {
		t.Fatalf("bounce was dispatched: %+v", processed)
	}
}
