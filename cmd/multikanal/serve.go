package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/channel/adapters/instagram"
	mailboxadapter "github.com/multikanal/multikanal/internal/channel/adapters/mailbox"
	"github.com/multikanal/multikanal/internal/channel/adapters/telegram"
	"github.com/multikanal/multikanal/internal/channel/adapters/whatsapp"
	"github.com/multikanal/multikanal/internal/chatbot"
	"github.com/multikanal/multikanal/internal/config"
	"github.com/multikanal/multikanal/internal/db"
	"github.com/multikanal/multikanal/internal/dedup"
	"github.com/multikanal/multikanal/internal/handlers"
	"github.com/multikanal/multikanal/internal/logger"
	"github.com/multikanal/multikanal/internal/mailbox"
	"github.com/multikanal/multikanal/internal/orchestrator"
	"github.com/multikanal/multikanal/internal/server"
	"github.com/multikanal/multikanal/internal/session"
	"github.com/multikanal/multikanal/internal/sweeper"
	"github.com/multikanal/multikanal/internal/thread"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideSessionStore,
			provideThreadStore,
			provideDedupStore,
			provideBackend,
			provideTelegramAdapter,
			provideRegistry,
			provideOrchestrator,
			provideProcessor,
			provideSweeper,
			handlers.NewPingHandler,
			provideAuthHandler,
			provideWhatsAppHandler,
			provideInstagramHandler,
			provideMailgunHandler,
			provideMessagesHandler,
			handlers.NewAdminHandler,
			provideServer,
		),
		fx.Invoke(
			startSweeper,
			startTelegram,
			startMailboxPoller,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideSessionStore(conn *pgxpool.Pool) session.Store { return session.NewPGStore(conn) }
func provideThreadStore(conn *pgxpool.Pool) thread.Store   { return thread.NewPGStore(conn) }
func provideDedupStore(conn *pgxpool.Pool) dedup.Store     { return dedup.NewPGStore(conn) }

func provideBackend(log *slog.Logger, cfg config.Config) *chatbot.Client {
	return chatbot.NewClient(log, cfg.Chatbot.BaseURL, cfg.Chatbot.APIKey, cfg.Chatbot.Timeout())
}

func provideTelegramAdapter(log *slog.Logger, cfg config.Config) *telegram.Adapter {
	return telegram.New(log, cfg.Telegram)
}

func provideRegistry(log *slog.Logger, cfg config.Config, tg *telegram.Adapter) (*channel.Registry, error) {
	registry := channel.NewRegistry()
	if cfg.WhatsApp.Enabled() {
		registry.MustRegister(whatsapp.New(log, cfg.WhatsApp))
	}
	if cfg.Instagram.Enabled() {
		registry.MustRegister(instagram.New(log, cfg.Instagram))
	}
	if cfg.Telegram.Enabled() {
		registry.MustRegister(tg)
	}
	if cfg.Email.Enabled() {
		outbound, err := emailOutbound(cfg.Email)
		if err != nil {
			return nil, err
		}
		registry.MustRegister(mailboxadapter.New(log, outbound))
	}
	return registry, nil
}

// emailOutbound picks the delivery backend for the configured mail provider.
// Gmail replies go out over SMTP; Graph and Mailgun use their own APIs.
func emailOutbound(cfg config.EmailConfig) (mailboxadapter.Outbound, error) {
	switch cfg.Provider {
	case "gmail":
		return mailboxadapter.NewSMTPSender(cfg.SMTP), nil
	case "graph":
		return mailboxadapter.NewGraphSender(context.Background(), cfg.Graph), nil
	case "mailgun":
		return mailboxadapter.NewMailgunSender(cfg.Mailgun), nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}

func provideOrchestrator(log *slog.Logger, cfg config.Config, registry *channel.Registry, backend *chatbot.Client, sessions session.Store, threads thread.Store, dedupStore dedup.Store) *orchestrator.Orchestrator {
	return orchestrator.New(log, registry, backend, sessions, threads, dedupStore, orchestrator.Options{
		ResetKeywords: cfg.Session.ResetKeywords,
		MaxInputChars: cfg.Chatbot.MaxInputChars,
	})
}

func provideProcessor(o *orchestrator.Orchestrator) handlers.Processor { return o }

func provideSweeper(log *slog.Logger, cfg config.Config, sessions session.Store, o *orchestrator.Orchestrator) *sweeper.Sweeper {
	return sweeper.New(log, sessions, o,
		cfg.Session.IdleTimeout(), cfg.Session.SweepInterval(), cfg.Session.SweepPageSize)
}

func provideAuthHandler(log *slog.Logger, cfg config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, cfg.Admin, cfg.Auth)
}

func provideWhatsAppHandler(log *slog.Logger, cfg config.Config, processor handlers.Processor) *handlers.WhatsAppWebhookHandler {
	return handlers.NewWhatsAppWebhookHandler(log, cfg.WhatsApp, processor)
}

func provideInstagramHandler(log *slog.Logger, cfg config.Config, processor handlers.Processor) *handlers.InstagramWebhookHandler {
	return handlers.NewInstagramWebhookHandler(log, cfg.Instagram, processor)
}

func provideMailgunHandler(log *slog.Logger, cfg config.Config, processor handlers.Processor) *handlers.MailgunWebhookHandler {
	return handlers.NewMailgunWebhookHandler(log, cfg.Email.Mailgun, processor)
}

func provideMessagesHandler(log *slog.Logger, processor handlers.Processor, registry *channel.Registry, dedupStore dedup.Store) *handlers.MessagesHandler {
	return handlers.NewMessagesHandler(log, processor, registry, dedupStore)
}

func provideServer(
	log *slog.Logger,
	cfg config.Config,
	pingHandler *handlers.PingHandler,
	authHandler *handlers.AuthHandler,
	whatsappHandler *handlers.WhatsAppWebhookHandler,
	instagramHandler *handlers.InstagramWebhookHandler,
	mailgunHandler *handlers.MailgunWebhookHandler,
	messagesHandler *handlers.MessagesHandler,
	adminHandler *handlers.AdminHandler,
) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, cfg.Auth.JWTSecret, cfg.Auth.InternalAPIKey,
		pingHandler, authHandler, whatsappHandler, instagramHandler, mailgunHandler,
		messagesHandler, adminHandler)
}

func startSweeper(lc fx.Lifecycle, s *sweeper.Sweeper) {
	var stop func()
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			stop, err = s.Start(context.Background())
			return err
		},
		OnStop: func(ctx context.Context) error {
			if stop != nil {
				stop()
			}
			return nil
		},
	})
}

func startTelegram(lc fx.Lifecycle, cfg config.Config, tg *telegram.Adapter, o *orchestrator.Orchestrator) {
	if !cfg.Telegram.Enabled() {
		return
	}
	var stop func()
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			stop, err = tg.Connect(context.Background(), func(ctx context.Context, msg channel.InboundMessage) {
				o.ProcessMessage(ctx, msg)
			})
			return err
		},
		OnStop: func(ctx context.Context) error {
			if stop != nil {
				stop()
			}
			return nil
		},
	})
}

// startMailboxPoller runs the inbound poller for polling providers. Mailgun
// delivers over its webhook and needs no poller.
func startMailboxPoller(lc fx.Lifecycle, cfg config.Config, log *slog.Logger, o *orchestrator.Orchestrator) {
	if !cfg.Email.Enabled() || cfg.Email.Provider == "mailgun" {
		return
	}
	handler := func(ctx context.Context, msg channel.InboundMessage) error {
		o.ProcessMessage(ctx, msg)
		return nil
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			switch cfg.Email.Provider {
			case "gmail":
				go mailbox.NewGmailPoller(log, cfg.Email.Gmail, cfg.Email.PollInterval(), handler).Run(pollCtx)
			case "graph":
				go mailbox.NewGraphPoller(pollCtx, log, cfg.Email.Graph, cfg.Email.PollInterval(), handler).Run(pollCtx)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, s *server.Server, log *slog.Logger, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped", slog.Any("error", err))
				}
			}()
			log.Info("server listening", slog.String("addr", cfg.Server.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Shutdown(ctx)
		},
	})
}
