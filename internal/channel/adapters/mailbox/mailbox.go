// Package mailbox implements the outbound email channel adapter. Inbound
// email arrives through the pollers in internal/mailbox; this package only
// sends replies, keeping them threaded via the reply context headers.
package mailbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/multikanal/multikanal/internal/channel"
)

// Outbound delivers one email through a concrete provider (SMTP, Microsoft
// Graph, Mailgun).
type Outbound interface {
	SendEmail(ctx context.Context, to, subject, body string, reply channel.ReplyContext) (messageID string, err error)
}

// Adapter implements channel.Adapter for email. Email has no message length
// limit worth chunking for and no typing or interactive-reply support, so the
// adapter carries none of the optional capabilities.
type Adapter struct {
	logger   *slog.Logger
	outbound Outbound
}

// New creates a mailbox adapter over the given outbound provider.
func New(log *slog.Logger, outbound Outbound) *Adapter {
	return &Adapter{
		logger:   log.With(slog.String("adapter", "mailbox")),
		outbound: outbound,
	}
}

// Platform returns the email platform identifier.
func (a *Adapter) Platform() channel.Platform {
	return channel.PlatformEmail
}

// SendMessage sends the reply to the recipient address.
func (a *Adapter) SendMessage(ctx context.Context, recipientID, text string, reply channel.ReplyContext) (channel.SendResult, error) {
	if a.outbound == nil {
		return channel.SendResult{}, fmt.Errorf("mailbox outbound not configured")
	}
	subject := reply.Subject
	if subject == "" {
		subject = "Re: Inquiry"
	}
	messageID, err := a.outbound.SendEmail(ctx, recipientID, subject, text, reply)
	if err != nil {
		return channel.SendResult{}, fmt.Errorf("send email: %w", err)
	}
	result := channel.SendResult{Sent: true}
	if messageID != "" {
		result.MessageIDs = []string{messageID}
	}
	return result, nil
}
