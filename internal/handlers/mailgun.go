package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/multikanal/multikanal/internal/config"
	"github.com/multikanal/multikanal/internal/mailbox"
)

// MailgunWebhookHandler receives inbound-route POSTs from Mailgun. The route
// forwards each email as a signed multipart form.
type MailgunWebhookHandler struct {
	logger    *slog.Logger
	cfg       config.MailgunConfig
	processor Processor
}

func NewMailgunWebhookHandler(log *slog.Logger, cfg config.MailgunConfig, processor Processor) *MailgunWebhookHandler {
	return &MailgunWebhookHandler{
		logger:    log.With(slog.String("handler", "mailgun_webhook")),
		cfg:       cfg,
		processor: processor,
	}
}

func (h *MailgunWebhookHandler) Register(e *echo.Echo) {
	e.POST("/email/mailgun/webhook", h.Receive)
}

// Receive verifies the webhook signature, canonicalizes the email, and
// processes it in the background. 406 tells Mailgun not to retry.
func (h *MailgunWebhookHandler) Receive(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	if !mailbox.VerifyMailgunSignature(h.cfg.WebhookSignKey,
		form.Get("timestamp"), form.Get("token"), form.Get("signature")) {
		h.logger.Warn("webhook signature rejected")
		return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	}

	email := mailbox.EmailFromMailgunForm(form)
	msg, ok := mailbox.Canonicalize(email)
	if !ok {
		h.logger.Info("inbound email skipped",
			slog.String("from", email.From), slog.String("message_id", email.MessageID))
		return c.JSON(http.StatusNotAcceptable, map[string]string{"status": "skipped"})
	}
	dispatchAsync(h.processor, msg)
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
