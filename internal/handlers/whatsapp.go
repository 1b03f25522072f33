package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/config"
)

// WhatsAppWebhookHandler receives WhatsApp Cloud API events: the verification
// handshake, text messages, and feedback button presses.
type WhatsAppWebhookHandler struct {
	logger      *slog.Logger
	verifyToken string
	processor   Processor
}

func NewWhatsAppWebhookHandler(log *slog.Logger, cfg config.WhatsAppConfig, processor Processor) *WhatsAppWebhookHandler {
	return &WhatsAppWebhookHandler{
		logger:      log.With(slog.String("handler", "whatsapp_webhook")),
		verifyToken: cfg.VerifyToken,
		processor:   processor,
	}
}

func (h *WhatsAppWebhookHandler) Register(e *echo.Echo) {
	e.GET("/whatsapp/webhook", h.Verify)
	e.POST("/whatsapp/webhook", h.Receive)
}

func (h *WhatsAppWebhookHandler) Verify(c echo.Context) error {
	return verifySubscription(c, h.verifyToken)
}

// Receive acks immediately and processes each parsed message in the
// background. Status updates and unsupported message types are ignored.
func (h *WhatsAppWebhookHandler) Receive(c echo.Context) error {
	var payload whatsAppPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	for _, msg := range ParseWhatsAppPayload(payload) {
		if msg.IsFeedback() {
			h.logger.Info("feedback event received",
				slog.String("payload", msg.Meta.FeedbackPayload))
		}
		dispatchAsync(h.processor, msg)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type whatsAppPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From string `json:"from"`
					ID   string `json:"id"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Interactive struct {
						Type        string `json:"type"`
						ButtonReply struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"button_reply"`
					} `json:"interactive"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseWhatsAppPayload flattens a webhook payload into canonical messages.
// A button_reply becomes a feedback event carrying the encoded payload.
func ParseWhatsAppPayload(payload whatsAppPayload) []channel.InboundMessage {
	var out []channel.InboundMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			senderName := ""
			if len(change.Value.Contacts) > 0 {
				senderName = change.Value.Contacts[0].Profile.Name
			}
			for _, m := range change.Value.Messages {
				msg := channel.InboundMessage{
					Platform:       channel.PlatformWhatsApp,
					ExternalUserID: m.From,
					Meta: channel.Meta{
						MessageID:  m.ID,
						SenderName: senderName,
					},
				}
				switch m.Type {
				case "text":
					msg.Query = m.Text.Body
				case "interactive":
					if m.Interactive.Type != "button_reply" {
						continue
					}
					msg.Meta.FeedbackPayload = m.Interactive.ButtonReply.ID
				default:
					continue
				}
				if msg.Query == "" && !msg.IsFeedback() {
					continue
				}
				out = append(out, msg)
			}
		}
	}
	return out
}
