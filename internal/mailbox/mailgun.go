package mailbox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"net/url"
	"strconv"
	"time"
)

// VerifyMailgunSignature checks the HMAC-SHA256 webhook signature Mailgun
// computes over timestamp and token with the domain's signing key.
func VerifyMailgunSignature(signingKey, timestamp, token, signature string) bool {
	if signingKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(timestamp + token))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// EmailFromMailgunForm maps an inbound-route POST onto an Email. Mailgun
// delivers the parsed message as form fields; stripped-text is preferred over
// body-plain because it excludes the quoted reply chain.
func EmailFromMailgunForm(form url.Values) Email {
	e := Email{
		MessageID:  form.Get("Message-Id"),
		InReplyTo:  form.Get("In-Reply-To"),
		References: form.Get("References"),
		Subject:    form.Get("subject"),
		From:       form.Get("sender"),
		HTMLBody:   form.Get("body-html"),
	}
	if text := form.Get("stripped-text"); text != "" {
		e.TextBody = text
	} else {
		e.TextBody = form.Get("body-plain")
	}
	if from := form.Get("from"); from != "" {
		if addr, err := mail.ParseAddress(from); err == nil {
			e.SenderName = addr.Name
			if e.From == "" {
				e.From = addr.Address
			}
		}
	}
	if ts := form.Get("timestamp"); ts != "" {
		if unix, err := strconv.ParseInt(ts, 10, 64); err == nil {
			e.Date = time.Unix(unix, 0)
		}
	}
	return e
}
