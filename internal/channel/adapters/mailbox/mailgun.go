package mailbox

import (
	"context"
	"fmt"

	mg "github.com/mailgun/mailgun-go/v5"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/config"
)

// MailgunSender delivers replies through the Mailgun messages API.
type MailgunSender struct {
	cfg    config.MailgunConfig
	client *mg.Client
}

func NewMailgunSender(cfg config.MailgunConfig) *MailgunSender {
	client := mg.NewMailgun(cfg.APIKey)
	if cfg.Region == "eu" {
		client.SetAPIBase(mg.APIBaseEU)
	}
	return &MailgunSender{cfg: cfg, client: client}
}

func (s *MailgunSender) SendEmail(ctx context.Context, to, subject, body string, reply channel.ReplyContext) (string, error) {
	m := mg.NewMessage(s.cfg.Domain, s.cfg.Sender, subject, body, to)
	if reply.InReplyTo != "" {
		m.AddHeader("In-Reply-To", reply.InReplyTo)
		references := reply.References
		if references != "" {
			references += " "
		}
		references += reply.InReplyTo
		m.AddHeader("References", references)
	}
	resp, err := s.client.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("mailgun send: %w", err)
	}
	return resp.ID, nil
}
