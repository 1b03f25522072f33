package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/dedup"
)

// MessagesHandler is the service-to-service API: other systems push canonical
// messages for processing and trigger manual outbound sends. Both endpoints
// sit behind API-key auth.
type MessagesHandler struct {
	logger    *slog.Logger
	processor Processor
	registry  *channel.Registry
	dedup     dedup.Store
}

func NewMessagesHandler(log *slog.Logger, processor Processor, registry *channel.Registry, dedupStore dedup.Store) *MessagesHandler {
	return &MessagesHandler{
		logger:    log.With(slog.String("handler", "messages")),
		processor: processor,
		registry:  registry,
		dedup:     dedupStore,
	}
}

func (h *MessagesHandler) Register(g *echo.Group) {
	g.POST("/messages/process", h.Process)
	g.POST("/send/reply", h.SendReply)
}

// Process accepts a canonical message and queues it for processing. Email
// events are pre-checked against the dedup store so callers that retry get a
// cheap duplicate answer instead of a queued no-op.
func (h *MessagesHandler) Process(c echo.Context) error {
	var msg channel.InboundMessage
	if err := c.Bind(&msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message")
	}
	if msg.Platform == "" || strings.TrimSpace(msg.ExternalUserID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "platform and external_user_id are required")
	}
	if msg.Meta.ThreadKey == "" && msg.Platform == channel.PlatformEmail {
		msg.Meta.ThreadKey = channel.DeriveThreadKey(msg.Meta.InReplyTo, msg.Meta.MessageID)
	}

	if msg.Platform == channel.PlatformEmail {
		if eventID := msg.EventID(); eventID != "" {
			seen, err := h.dedup.IsProcessed(c.Request().Context(), eventID, msg.Platform)
			if err != nil {
				h.logger.Error("dedup pre-check failed", slog.Any("error", err))
			} else if seen {
				h.logger.Info("duplicate email blocked", slog.String("event_id", eventID))
				return c.JSON(http.StatusOK, map[string]string{
					"status":  "duplicate",
					"message": "Already processed",
				})
			}
		}
	}

	dispatchAsync(h.processor, msg)
	return c.JSON(http.StatusOK, map[string]string{"status": "queued"})
}

type sendReplyRequest struct {
	Platform    string `json:"platform"`
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
}

// SendReply delivers a backend-initiated message straight to a channel,
// bypassing the conversational pipeline.
func (h *MessagesHandler) SendReply(c echo.Context) error {
	var req sendReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	platform := channel.ParsePlatform(req.Platform)
	if req.RecipientID == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient_id and message are required")
	}
	adapter, ok := h.registry.Get(platform)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown platform")
	}
	result, err := adapter.SendMessage(c.Request().Context(), req.RecipientID, req.Message, channel.ReplyContext{})
	if err != nil {
		h.logger.Error("manual send failed",
			slog.String("platform", platform.String()), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, "send failed")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "processed",
		"message_ids": result.MessageIDs,
	})
}
