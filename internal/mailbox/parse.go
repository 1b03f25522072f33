package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// ParseRaw parses a raw RFC 5322 message into an Email. Header message ids are
// kept in their angle-bracketed wire form so thread keys compare equal across
// providers.
func ParseRaw(raw []byte) (Email, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return Email{}, fmt.Errorf("parse message: %w", err)
	}
	defer mr.Close()

	var e Email
	header := mr.Header
	e.Subject, _ = header.Subject()
	e.Date, _ = header.Date()
	if id, err := header.MessageID(); err == nil && id != "" {
		e.MessageID = bracket(id)
	}
	if ids, err := header.MsgIDList("In-Reply-To"); err == nil && len(ids) > 0 {
		e.InReplyTo = bracket(ids[0])
	}
	if ids, err := header.MsgIDList("References"); err == nil && len(ids) > 0 {
		refs := make([]string, 0, len(ids))
		for _, id := range ids {
			refs = append(refs, bracket(id))
		}
		e.References = strings.Join(refs, " ")
	}
	if addrs, err := header.AddressList("From"); err == nil && len(addrs) > 0 {
		e.From = addrs[0].Address
		e.SenderName = addrs[0].Name
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}
		switch contentType {
		case "text/plain":
			if e.TextBody == "" {
				e.TextBody = string(body)
			}
		case "text/html":
			if e.HTMLBody == "" {
				e.HTMLBody = string(body)
			}
		}
	}
	return e, nil
}

func bracket(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "<") {
		return id
	}
	return "<" + id + ">"
}
