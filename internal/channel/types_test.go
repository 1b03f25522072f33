package channel

import "testing"

func TestDeriveThreadKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		inReplyTo string
		messageID string
		want      string
	}{
		{name: "reply uses in-reply-to", inReplyTo: "<a@x>", messageID: "<b@x>", want: "<a@x>"},
		{name: "new thread falls back to message id", inReplyTo: "", messageID: "<b@x>", want: "<b@x>"},
		{name: "whitespace in-reply-to is a miss", inReplyTo: "   ", messageID: "<b@x>", want: "<b@x>"},
		{name: "both empty", inReplyTo: "", messageID: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DeriveThreadKey(tc.inReplyTo, tc.messageID); got != tc.want {
				t.Fatalf("want %q got %q", tc.want, got)
			}
		})
	}
}

func TestInboundMessage_EventIDPrefersGraphID(t *testing.T) {
	t.Parallel()

	msg := InboundMessage{Meta: Meta{MessageID: "<mid@x>", GraphMessageID: "AAMk123"}}
	if got := msg.EventID(); got != "AAMk123" {
		t.Fatalf("want graph id, got %q", got)
	}
	msg.Meta.GraphMessageID = ""
	if got := msg.EventID(); got != "<mid@x>" {
		t.Fatalf("want message id, got %q", got)
	}
	msg.Meta.MessageID = "  "
	if got := msg.EventID(); got != "" {
		t.Fatalf("want empty event id, got %q", got)
	}
}

func TestInboundMessage_IsFeedback(t *testing.T) {
	t.Parallel()

	if (InboundMessage{}).IsFeedback() {
		t.Fatal("empty payload is not feedback")
	}
	msg := InboundMessage{Meta: Meta{FeedbackPayload: "like-42"}}
	if !msg.IsFeedback() {
		t.Fatal("payload should mark message as feedback")
	}
}

func TestParsePlatform(t *testing.T) {
	t.Parallel()

	if got := ParsePlatform("  WhatsApp "); got != PlatformWhatsApp {
		t.Fatalf("got %q", got)
	}
	if got := ParsePlatform("EMAIL"); got != PlatformEmail {
		t.Fatalf("got %q", got)
	}
}
