// Package server assembles the echo application: middleware, auth boundaries,
// and handler registration.
package server

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/multikanal/multikanal/internal/auth"
	"github.com/multikanal/multikanal/internal/handlers"
)

type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(
	log *slog.Logger,
	addr string,
	jwtSecret string,
	internalAPIKey string,
	pingHandler *handlers.PingHandler,
	authHandler *handlers.AuthHandler,
	whatsappHandler *handlers.WhatsAppWebhookHandler,
	instagramHandler *handlers.InstagramWebhookHandler,
	mailgunHandler *handlers.MailgunWebhookHandler,
	messagesHandler *handlers.MessagesHandler,
	adminHandler *handlers.AdminHandler,
) *Server {
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	}))
	e.Use(auth.JWTMiddleware(jwtSecret, func(c echo.Context) bool {
		return shouldSkipJWT(c.Request().URL.Path)
	}))

	if pingHandler != nil {
		pingHandler.Register(e)
	}
	if authHandler != nil {
		authHandler.Register(e)
	}
	if whatsappHandler != nil {
		whatsappHandler.Register(e)
	}
	if instagramHandler != nil {
		instagramHandler.Register(e)
	}
	if mailgunHandler != nil {
		mailgunHandler.Register(e)
	}
	if messagesHandler != nil {
		internalGroup := e.Group("/api", auth.APIKeyMiddleware(internalAPIKey))
		messagesHandler.Register(internalGroup)
	}
	if adminHandler != nil {
		adminHandler.Register(e)
	}

	return &Server{
		echo: e,
		addr: addr,
	}
}

// shouldSkipJWT exempts the public surface from JWT auth: health checks,
// login, platform webhooks, and the internal API (which carries its own
// API-key check).
func shouldSkipJWT(path string) bool {
	switch path {
	case "/ping", "/health", "/auth/login",
		"/whatsapp/webhook", "/instagram/webhook", "/email/mailgun/webhook",
		"/api/messages/process", "/api/send/reply":
		return true
	}
	return false
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
