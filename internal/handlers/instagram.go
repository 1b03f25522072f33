package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/config"
)

// InstagramWebhookHandler receives Instagram Messaging events: the
// verification handshake, direct messages, and quick-reply feedback.
type InstagramWebhookHandler struct {
	logger      *slog.Logger
	verifyToken string
	processor   Processor
}

func NewInstagramWebhookHandler(log *slog.Logger, cfg config.InstagramConfig, processor Processor) *InstagramWebhookHandler {
	return &InstagramWebhookHandler{
		logger:      log.With(slog.String("handler", "instagram_webhook")),
		verifyToken: cfg.VerifyToken,
		processor:   processor,
	}
}

func (h *InstagramWebhookHandler) Register(e *echo.Echo) {
	e.GET("/instagram/webhook", h.Verify)
	e.POST("/instagram/webhook", h.Receive)
}

func (h *InstagramWebhookHandler) Verify(c echo.Context) error {
	return verifySubscription(c, h.verifyToken)
}

func (h *InstagramWebhookHandler) Receive(c echo.Context) error {
	var payload instagramPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	for _, msg := range ParseInstagramPayload(payload) {
		if msg.IsFeedback() {
			h.logger.Info("feedback event received",
				slog.String("payload", msg.Meta.FeedbackPayload))
		}
		dispatchAsync(h.processor, msg)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type instagramPayload struct {
	Entry []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message struct {
				MID        string `json:"mid"`
				Text       string `json:"text"`
				IsEcho     bool   `json:"is_echo"`
				QuickReply struct {
					Payload string `json:"payload"`
				} `json:"quick_reply"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// ParseInstagramPayload flattens a webhook payload into canonical messages.
// Echoes of the page's own sends are dropped; a quick_reply becomes a
// feedback event.
func ParseInstagramPayload(payload instagramPayload) []channel.InboundMessage {
	var out []channel.InboundMessage
	for _, entry := range payload.Entry {
		for _, ev := range entry.Messaging {
			if ev.Message.IsEcho || ev.Sender.ID == "" {
				continue
			}
			msg := channel.InboundMessage{
				Platform:       channel.PlatformInstagram,
				ExternalUserID: ev.Sender.ID,
				Meta: channel.Meta{
					MessageID: ev.Message.MID,
				},
			}
			if ev.Message.QuickReply.Payload != "" {
				msg.Meta.FeedbackPayload = ev.Message.QuickReply.Payload
			} else if ev.Message.Text != "" {
				msg.Query = ev.Message.Text
			} else {
				continue
			}
			out = append(out, msg)
		}
	}
	return out
}
