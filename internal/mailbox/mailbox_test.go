package mailbox

import (
	"strings"
	"testing"

	"github.com/multikanal/multikanal/internal/channel"
)

func TestIsSystemSender(t *testing.T) {
	t.Parallel()

	cases := []struct {
		addr string
		want bool
	}{
		{addr: "mailer-daemon@googlemail.com", want: true},
		{addr: "MAILER-DAEMON@example.com", want: true},
		{addr: "noreply@example.com", want: true},
		{addr: "no-reply@example.com", want: true},
		{addr: "postmaster@example.com", want: true},
		{addr: "noreply-billing@example.com", want: true},
		{addr: "user@example.com", want: false},
		{addr: "replyto@example.com", want: false},
		{addr: "", want: false},
	}
	for _, tc := range cases {
		if got := IsSystemSender(tc.addr); got != tc.want {
			t.Fatalf("%q: want %v got %v", tc.addr, tc.want, got)
		}
	}
}

func TestEmailBody_PrefersTextOverHTML(t *testing.T) {
	t.Parallel()

	e := Email{TextBody: "plain text", HTMLBody: "<p>html</p>"}
	if got := e.Body(); got != "plain text" {
		t.Fatalf("body: %q", got)
	}
}

func TestEmailBody_ConvertsHTML(t *testing.T) {
	t.Parallel()

	e := Email{HTMLBody: "<p>Hello <strong>there</strong></p>"}
	got := e.Body()
	if !strings.Contains(got, "Hello") {
		t.Fatalf("converted body lost text: %q", got)
	}
	if strings.Contains(got, "<p>") {
		t.Fatalf("tags survived conversion: %q", got)
	}
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	msg, ok := Canonicalize(Email{
		MessageID:  "<m2@x>",
		From:       "user@example.com",
		SenderName: "Budi",
		Subject:    "Kendala",
		TextBody:   "Tolong bantu",
		InReplyTo:  "<m1@x>",
		References: "<m0@x> <m1@x>",
	})
	if !ok {
		t.Fatal("valid email rejected")
	}
	if msg.Platform != channel.PlatformEmail || msg.ExternalUserID != "user@example.com" {
		t.Fatalf("identity: %+v", msg)
	}
	if msg.Query != "Tolong bantu" {
		t.Fatalf("query: %q", msg.Query)
	}
	if msg.Meta.ThreadKey != "<m1@x>" {
		t.Fatalf("thread key: %q", msg.Meta.ThreadKey)
	}
}

func TestCanonicalize_NewThreadKeyFromMessageID(t *testing.T) {
	t.Parallel()

	msg, ok := Canonicalize(Email{MessageID: "<m1@x>", From: "user@example.com", TextBody: "hi"})
	if !ok || msg.Meta.ThreadKey != "<m1@x>" {
		t.Fatalf("thread key: ok=%v key=%q", ok, msg.Meta.ThreadKey)
	}
}

func TestCanonicalize_Rejections(t *testing.T) {
	t.Parallel()

	if _, ok := Canonicalize(Email{From: "noreply@example.com", TextBody: "x"}); ok {
		t.Fatal("system sender accepted")
	}
	if _, ok := Canonicalize(Email{From: "", TextBody: "x"}); ok {
		t.Fatal("missing sender accepted")
	}
	if _, ok := Canonicalize(Email{From: "user@example.com"}); ok {
		t.Fatal("empty body accepted")
	}
}

func TestParseRaw_SinglePart(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"From: Budi <user@example.com>",
		"To: support@example.com",
		"Subject: Kendala login",
		"Message-ID: <m2@example.com>",
		"In-Reply-To: <m1@example.com>",
		"References: <m0@example.com> <m1@example.com>",
		"Date: Mon, 10 Aug 2026 10:00:00 +0700",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Saya tidak bisa masuk.",
		"",
	}, "\r\n")

	e, err := ParseRaw([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.From != "user@example.com" || e.SenderName != "Budi" {
		t.Fatalf("from: %q name: %q", e.From, e.SenderName)
	}
	if e.Subject != "Kendala login" {
		t.Fatalf("subject: %q", e.Subject)
	}
	if e.MessageID != "<m2@example.com>" {
		t.Fatalf("message id: %q", e.MessageID)
	}
	if e.InReplyTo != "<m1@example.com>" {
		t.Fatalf("in-reply-to: %q", e.InReplyTo)
	}
	if e.References != "<m0@example.com> <m1@example.com>" {
		t.Fatalf("references: %q", e.References)
	}
	if !strings.Contains(e.TextBody, "Saya tidak bisa masuk.") {
		t.Fatalf("body: %q", e.TextBody)
	}
}

func TestParseRaw_MultipartPrefersDeclaredParts(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"From: user@example.com",
		"Subject: Hi",
		"Message-ID: <m1@example.com>",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain version",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html version</p>",
		"--b1--",
		"",
	}, "\r\n")

	e, err := ParseRaw([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(e.TextBody, "plain version") {
		t.Fatalf("text body: %q", e.TextBody)
	}
	if !strings.Contains(e.HTMLBody, "html version") {
		t.Fatalf("html body: %q", e.HTMLBody)
	}
}
