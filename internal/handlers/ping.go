// Package handlers holds the HTTP handlers: platform webhooks, the internal
// service API, admin session management, and auth.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/multikanal/multikanal/internal/channel"
)

type PingHandler struct {
	logger   *slog.Logger
	registry *channel.Registry
}

func NewPingHandler(log *slog.Logger, registry *channel.Registry) *PingHandler {
	return &PingHandler{
		logger:   log.With(slog.String("handler", "ping")),
		registry: registry,
	}
}

func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
}

// Ping reports liveness and the channels this instance serves.
func (h *PingHandler) Ping(c echo.Context) error {
	platforms := h.registry.Platforms()
	channels := make([]string, 0, len(platforms))
	for _, p := range platforms {
		channels = append(channels, p.String())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"channels": channels,
	})
}

func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}
