package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/multikanal/multikanal/internal/auth"
	"github.com/multikanal/multikanal/internal/config"
)

// AuthHandler issues admin JWTs against the configured credential.
type AuthHandler struct {
	logger    *slog.Logger
	admin     config.AdminConfig
	jwtSecret string
	expiresIn time.Duration
}

func NewAuthHandler(log *slog.Logger, admin config.AdminConfig, authCfg config.AuthConfig) *AuthHandler {
	expiresIn, err := time.ParseDuration(authCfg.JWTExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 24 * time.Hour
	}
	return &AuthHandler{
		logger:    log.With(slog.String("handler", "auth")),
		admin:     admin,
		jwtSecret: authCfg.JWTSecret,
		expiresIn: expiresIn,
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/auth/login", h.Login)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username != h.admin.Username || !auth.VerifyPassword(h.admin.PasswordHash, req.Password) {
		h.logger.Warn("login rejected", slog.String("username", req.Username))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	token, expiresAt, err := auth.GenerateToken(req.Username, h.jwtSecret, h.expiresIn)
	if err != nil {
		h.logger.Error("token generation failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "token generation failed")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}
