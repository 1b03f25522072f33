package orchestrator

import (
	"context"
	"testing"

	"github.com/multikanal/multikanal/internal/channel"
)

func TestParseFeedbackPayload(t *testing.T) {
	t.Parallel()

	cases := []struct {
		payload   string
		rating    string
		messageID string
		ok        bool
	}{
		{payload: "like-123", rating: RatingPositive, messageID: "123", ok: true},
		{payload: "good-abc", rating: RatingPositive, messageID: "abc", ok: true},
		{payload: "dislike-123", rating: RatingNegative, messageID: "123", ok: true},
		{payload: "bad-xyz", rating: RatingNegative, messageID: "xyz", ok: true},
		{payload: "Like-42", rating: RatingPositive, messageID: "42", ok: true},
		{payload: "bad-msg-with-dashes", rating: RatingNegative, messageID: "msg-with-dashes", ok: true},
		{payload: "like-", ok: false},
		{payload: "-123", ok: false},
		{payload: "nodash", ok: false},
		{payload: "", ok: false},
		{payload: "maybe-123", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.payload, func(t *testing.T) {
			t.Parallel()
			rating, messageID, ok := ParseFeedbackPayload(tc.payload)
			if ok != tc.ok {
				t.Fatalf("ok: want %v got %v", tc.ok, ok)
			}
			if !tc.ok {
				return
			}
			if rating != tc.rating || messageID != tc.messageID {
				t.Fatalf("want (%q,%q) got (%q,%q)", tc.rating, tc.messageID, rating, messageID)
			}
		})
	}
}

func TestHandleFeedback_ForwardsAndAcks(t *testing.T) {
	t.Parallel()

	f := newFixture(t, channel.PlatformWhatsApp, Options{})
	_ = f.sessions.Save(context.Background(), channel.PlatformWhatsApp, "628111", "conv-1")

	f.orch.HandleFeedback(context.Background(), channel.InboundMessage{
		Platform:       channel.PlatformWhatsApp,
		ExternalUserID: "628111",
		Meta:           channel.Meta{FeedbackPayload: "like-msg-7"},
	})
	if len(f.backend.feedback) != 1 || f.backend.feedback[0] != "conv-1/msg-7/positive" {
		t.Fatalf("feedback forwarded: %v", f.backend.feedback)
	}
	if len(f.adapter.sent) != 1 || f.adapter.sent[0].text != feedbackAck {
		t.Fatalf("ack: %+v", f.adapter.sent)
	}
}

func TestHandleFeedback_MalformedPayloadDropped(t *testing.T) {
	t.Parallel()

	f := newFixture(t, channel.PlatformWhatsApp, Options{})
	f.orch.HandleFeedback(context.Background(), channel.InboundMessage{
		Platform:       channel.PlatformWhatsApp,
		ExternalUserID: "628111",
		Meta:           channel.Meta{FeedbackPayload: "garbage"},
	})
	if len(f.backend.feedback) != 0 {
		t.Fatal("malformed payload reached the backend")
	}
	if len(f.adapter.sent) != 0 {
		t.Fatal("malformed payload was acked")
	}
}

func TestHandleFeedback_NoAckWhenBackendRejects(t *testing.T) {
	t.Parallel()

	f := newFixture(t, channel.PlatformWhatsApp, Options{})
	f.backend.feedbackErr = context.DeadlineExceeded

	f.orch.HandleFeedback(context.Background(), channel.InboundMessage{
		Platform:       channel.PlatformWhatsApp,
		ExternalUserID: "628111",
		Meta:           channel.Meta{FeedbackPayload: "bad-msg-7"},
	})
	if len(f.adapter.sent) != 0 {
		t.Fatal("rejected feedback must not be acked")
	}
}
