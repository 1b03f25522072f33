package mailbox

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/config"
)

// SMTPSender delivers replies over plain SMTP, threading them with the
// In-Reply-To and References headers from the reply context.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string, reply channel.ReplyContext) (string, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.Username); err != nil {
		return "", fmt.Errorf("set from: %w", err)
	}
	if err := m.To(to); err != nil {
		return "", fmt.Errorf("set to: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)
	m.SetMessageID()
	if reply.InReplyTo != "" {
		m.SetGenHeader("In-Reply-To", reply.InReplyTo)
		references := reply.References
		if references == "" {
			references = reply.InReplyTo
		} else {
			references = references + " " + reply.InReplyTo
		}
		m.SetGenHeader("References", references)
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
	}
	switch s.cfg.Security {
	case "tls":
		opts = append(opts, mail.WithSSLPort(false), mail.WithTLSPolicy(mail.TLSMandatory))
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return "", fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return m.GetMessageID(), nil
}
