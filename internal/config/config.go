// Package config loads and validates the service configuration from TOML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":8080"
	DefaultJWTExpiresIn = "24h"
	DefaultPGHost       = "127.0.0.1"
	DefaultPGPort       = 5432
	DefaultPGUser       = "postgres"
	DefaultPGDatabase   = "multikanal"
	DefaultPGSSLMode    = "disable"
	DefaultGraphVersion = "v24.0"
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Admin     AdminConfig     `toml:"admin"`
	Auth      AuthConfig      `toml:"auth"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Chatbot   ChatbotConfig   `toml:"chatbot"`
	WhatsApp  WhatsAppConfig  `toml:"whatsapp"`
	Instagram InstagramConfig `toml:"instagram"`
	Telegram  TelegramConfig  `toml:"telegram"`
	Email     EmailConfig     `toml:"email"`
	Session   SessionConfig   `toml:"session"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AdminConfig struct {
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
	// InternalAPIKey guards the service-to-service endpoints (X-API-Key header).
	InternalAPIKey string `toml:"internal_api_key"`
}

type PostgresConfig struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"gt=0"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	Database string `toml:"database" validate:"required"`
	SSLMode  string `toml:"sslmode"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type ChatbotConfig struct {
	BaseURL        string `toml:"base_url" validate:"required,url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=0"`
	MaxInputChars  int    `toml:"max_input_chars" validate:"gte=0"`
}

func (c ChatbotConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type WhatsAppConfig struct {
	AccessToken   string `toml:"access_token"`
	PhoneNumberID string `toml:"phone_number_id"`
	VerifyToken   string `toml:"verify_token"`
	GraphVersion  string `toml:"graph_version"`
}

func (c WhatsAppConfig) Enabled() bool { return c.AccessToken != "" && c.PhoneNumberID != "" }

type InstagramConfig struct {
	AccessToken  string `toml:"access_token"`
	ChatbotID    string `toml:"chatbot_id"`
	VerifyToken  string `toml:"verify_token"`
	GraphVersion string `toml:"graph_version"`
}

func (c InstagramConfig) Enabled() bool { return c.AccessToken != "" && c.ChatbotID != "" }

type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
}

func (c TelegramConfig) Enabled() bool { return c.BotToken != "" }

// EmailConfig selects and configures the mailbox provider.
// Provider is one of "gmail", "graph", "mailgun"; empty disables email.
type EmailConfig struct {
	Provider            string        `toml:"provider" validate:"omitempty,oneof=gmail graph mailgun"`
	PollIntervalSeconds int           `toml:"poll_interval_seconds" validate:"gte=0"`
	Gmail               GmailConfig   `toml:"gmail"`
	Graph               GraphConfig   `toml:"graph"`
	Mailgun             MailgunConfig `toml:"mailgun"`
	SMTP                SMTPConfig    `toml:"smtp"`
}

func (c EmailConfig) Enabled() bool { return c.Provider != "" }

func (c EmailConfig) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

type GmailConfig struct {
	IMAPHost string `toml:"imap_host"`
	IMAPPort int    `toml:"imap_port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type GraphConfig struct {
	TenantID     string `toml:"tenant_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	MailboxUser  string `toml:"mailbox_user"`
}

type MailgunConfig struct {
	Domain         string `toml:"domain"`
	APIKey         string `toml:"api_key"`
	WebhookSignKey string `toml:"webhook_signing_key"`
	Sender         string `toml:"sender"`
	Region         string `toml:"region" validate:"omitempty,oneof=us eu"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Security string `toml:"security"`
}

type SessionConfig struct {
	IdleTimeoutSeconds   int      `toml:"idle_timeout_seconds" validate:"gte=0"`
	SweepIntervalSeconds int      `toml:"sweep_interval_seconds" validate:"gte=0"`
	SweepPageSize        int      `toml:"sweep_page_size" validate:"gte=0"`
	ResetKeywords        []string `toml:"reset_keywords"`
}

func (c SessionConfig) IdleTimeout() time.Duration {
	if c.IdleTimeoutSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

func (c SessionConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// Load reads the TOML config at path, applies defaults, and validates it.
// An empty path falls back to DefaultConfigPath. A missing file is not an
// error; the defaults (plus environment-specific overrides baked into the
// deployment) are used as-is.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Chatbot: ChatbotConfig{
			BaseURL:        "http://localhost:9798/api/live-chat/internal/chat/bot",
			TimeoutSeconds: 120,
			MaxInputChars:  6000,
		},
		WhatsApp: WhatsAppConfig{
			GraphVersion: DefaultGraphVersion,
		},
		Instagram: InstagramConfig{
			GraphVersion: DefaultGraphVersion,
		},
		Email: EmailConfig{
			PollIntervalSeconds: 15,
			Gmail: GmailConfig{
				IMAPHost: "imap.gmail.com",
				IMAPPort: 993,
			},
			SMTP: SMTPConfig{
				Host:     "smtp.gmail.com",
				Port:     587,
				Security: "starttls",
			},
		},
		Session: SessionConfig{
			IdleTimeoutSeconds:   15 * 60,
			SweepIntervalSeconds: 60,
			SweepPageSize:        50,
			ResetKeywords: []string{
				"terima kasih", "terimakasih", "makasih", "trimakasih", "trims",
				"thank you", "thankyou", "thanks",
			},
		},
	}
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat config %s: %w", path, err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
