// Package telegram implements the channel adapter for Telegram bots,
// including the long-polling receiver that feeds inbound messages to the
// orchestrator.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/config"
)

const maxMessageLength = 4096

// Handler receives each canonical inbound message from the poll loop.
type Handler func(ctx context.Context, msg channel.InboundMessage)

// Adapter implements channel.Adapter and channel.TypingNotifier for Telegram.
type Adapter struct {
	logger  *slog.Logger
	token   string
	enabled bool

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// New creates a Telegram adapter. The bot connection is established lazily on
// first use.
func New(log *slog.Logger, cfg config.TelegramConfig) *Adapter {
	return &Adapter{
		logger:  log.With(slog.String("adapter", "telegram")),
		token:   cfg.BotToken,
		enabled: cfg.Enabled(),
	}
}

// Platform returns the Telegram platform identifier.
func (a *Adapter) Platform() channel.Platform {
	return channel.PlatformTelegram
}

func (a *Adapter) getOrCreateBot() (*tgbotapi.BotAPI, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bot != nil {
		return a.bot, nil
	}
	bot, err := tgbotapi.NewBotAPI(a.token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	a.bot = bot
	return bot, nil
}

// SendMessage delivers text to the chat, chunked to the Telegram limit.
func (a *Adapter) SendMessage(_ context.Context, recipientID, text string, reply channel.ReplyContext) (channel.SendResult, error) {
	if !a.enabled {
		return channel.SendResult{}, fmt.Errorf("telegram adapter not configured")
	}
	chatID, err := strconv.ParseInt(recipientID, 10, 64)
	if err != nil {
		return channel.SendResult{}, fmt.Errorf("invalid telegram chat id %q: %w", recipientID, err)
	}
	bot, err := a.getOrCreateBot()
	if err != nil {
		return channel.SendResult{}, err
	}
	replyTo := 0
	if reply.SourceMessageID != "" {
		if id, err := strconv.Atoi(reply.SourceMessageID); err == nil {
			replyTo = id
		}
	}
	result := channel.SendResult{Sent: true}
	for i, chunk := range channel.ChunkText(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == 0 && replyTo != 0 {
			msg.ReplyToMessageID = replyTo
		}
		sent, err := bot.Send(msg)
		if err != nil {
			return channel.SendResult{}, fmt.Errorf("telegram send: %w", err)
		}
		result.MessageIDs = append(result.MessageIDs, strconv.Itoa(sent.MessageID))
	}
	return result, nil
}

// SendTypingOn shows the "typing..." chat action.
func (a *Adapter) SendTypingOn(_ context.Context, recipientID, _ string) error {
	if !a.enabled {
		return nil
	}
	chatID, err := strconv.ParseInt(recipientID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", recipientID, err)
	}
	bot, err := a.getOrCreateBot()
	if err != nil {
		return err
	}
	_, err = bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

// SendTypingOff is a no-op; Telegram expires chat actions on its own.
func (a *Adapter) SendTypingOff(_ context.Context, _ string) error {
	return nil
}

// Connect starts long-polling for updates and forwards each text message to
// the handler. The returned stop func ends the poll loop.
func (a *Adapter) Connect(ctx context.Context, handler Handler) (stop func(), err error) {
	if !a.enabled {
		return nil, fmt.Errorf("telegram adapter not configured")
	}
	bot, err := a.getOrCreateBot()
	if err != nil {
		return nil, err
	}
	pollCtx, cancel := context.WithCancel(ctx)

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := bot.GetUpdatesChan(updateCfg)

	go func() {
		for {
			select {
			case <-pollCtx.Done():
				bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message == nil || update.Message.Text == "" {
					continue
				}
				handler(pollCtx, toInbound(update.Message))
			}
		}
	}()
	a.logger.Info("telegram long-polling started")
	return cancel, nil
}

func toInbound(m *tgbotapi.Message) channel.InboundMessage {
	senderName := ""
	if m.From != nil {
		senderName = m.From.FirstName
		if m.From.LastName != "" {
			senderName += " " + m.From.LastName
		}
	}
	return channel.InboundMessage{
		Platform:       channel.PlatformTelegram,
		ExternalUserID: strconv.FormatInt(m.Chat.ID, 10),
		Query:          m.Text,
		Meta: channel.Meta{
			MessageID:  strconv.Itoa(m.MessageID),
			SenderName: senderName,
		},
	}
}
