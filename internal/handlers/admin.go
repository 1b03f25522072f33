package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/session"
)

const defaultSessionPageSize = 100

// AdminHandler exposes session inspection and termination to operators.
// All routes require a JWT.
type AdminHandler struct {
	logger   *slog.Logger
	sessions session.Store
}

func NewAdminHandler(log *slog.Logger, sessions session.Store) *AdminHandler {
	return &AdminHandler{
		logger:   log.With(slog.String("handler", "admin")),
		sessions: sessions,
	}
}

func (h *AdminHandler) Register(e *echo.Echo) {
	e.GET("/api/admin/sessions", h.ListSessions)
	e.DELETE("/api/admin/sessions/:platform/:user_id", h.ClearSession)
}

type sessionView struct {
	Platform       string `json:"platform"`
	ExternalUserID string `json:"external_user_id"`
	ConversationID string `json:"conversation_id"`
	LastActiveAt   string `json:"last_active_at"`
}

// ListSessions returns active sessions, oldest activity first. A zero idle
// threshold matches every session.
func (h *AdminHandler) ListSessions(c echo.Context) error {
	limit := defaultSessionPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}
	entries, err := h.sessions.ListIdle(c.Request().Context(), 0, limit)
	if err != nil {
		h.logger.Error("list sessions failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "list sessions failed")
	}
	views := make([]sessionView, 0, len(entries))
	for _, e := range entries {
		views = append(views, sessionView{
			Platform:       e.Platform.String(),
			ExternalUserID: e.ExternalUserID,
			ConversationID: e.ConversationID,
			LastActiveAt:   e.LastActiveAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": views})
}

// ClearSession drops a session without notifying the user; the next message
// starts a fresh conversation.
func (h *AdminHandler) ClearSession(c echo.Context) error {
	platform := channel.ParsePlatform(c.Param("platform"))
	userID := c.Param("user_id")
	if platform == "" || userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "platform and user_id are required")
	}
	if err := h.sessions.Clear(c.Request().Context(), platform, userID); err != nil {
		h.logger.Error("clear session failed",
			slog.String("platform", platform.String()),
			slog.String("user_id", userID),
			slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "clear session failed")
	}
	h.logger.Info("session cleared by admin",
		slog.String("platform", platform.String()), slog.String("user_id", userID))
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}
