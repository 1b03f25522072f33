// Package mailbox ingests inbound email and canonicalizes it into messages
// the orchestrator can process. It hosts the IMAP and Microsoft Graph pollers
// plus the Mailgun webhook helpers; outbound delivery lives in the channel
// adapter.
package mailbox

import (
	"context"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/multikanal/multikanal/internal/channel"
)

// Handler consumes a canonical inbound message. The pollers call it once per
// accepted email; deduplication happens downstream.
type Handler func(ctx context.Context, msg channel.InboundMessage) error

// Email is a provider-neutral inbound email before canonicalization.
type Email struct {
	MessageID      string
	GraphMessageID string
	From           string
	SenderName     string
	Subject        string
	TextBody       string
	HTMLBody       string
	InReplyTo      string
	References     string
	Date           time.Time
}

var systemSenderPrefixes = []string{"mailer-daemon", "noreply", "no-reply", "postmaster"}

// IsSystemSender reports whether the address belongs to an automated sender
// (bounces, delivery notifications) whose mail must never reach the assistant.
func IsSystemSender(addr string) bool {
	local := strings.ToLower(strings.TrimSpace(addr))
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}
	for _, prefix := range systemSenderPrefixes {
		if strings.HasPrefix(local, prefix) {
			return true
		}
	}
	return false
}

// Body returns the plain-text content of the email, converting the HTML part
// to markdown when no text part exists. Conversion failures fall back to the
// raw HTML rather than dropping the message.
func (e Email) Body() string {
	if text := strings.TrimSpace(e.TextBody); text != "" {
		return text
	}
	html := strings.TrimSpace(e.HTMLBody)
	if html == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return html
	}
	return strings.TrimSpace(md)
}

// Canonicalize maps the email onto the canonical inbound message. The second
// return value is false when the email must be skipped: system senders, a
// missing sender address, or an empty body after conversion.
func Canonicalize(e Email) (channel.InboundMessage, bool) {
	from := strings.TrimSpace(e.From)
	if from == "" || IsSystemSender(from) {
		return channel.InboundMessage{}, false
	}
	body := e.Body()
	if body == "" {
		return channel.InboundMessage{}, false
	}
	return channel.InboundMessage{
		Platform:       channel.PlatformEmail,
		ExternalUserID: from,
		Query:          body,
		Meta: channel.Meta{
			Subject:        strings.TrimSpace(e.Subject),
			SenderName:     strings.TrimSpace(e.SenderName),
			MessageID:      strings.TrimSpace(e.MessageID),
			GraphMessageID: strings.TrimSpace(e.GraphMessageID),
			InReplyTo:      strings.TrimSpace(e.InReplyTo),
			References:     strings.TrimSpace(e.References),
			ThreadKey:      channel.DeriveThreadKey(e.InReplyTo, e.MessageID),
		},
	}, true
}
