package channel

import (
	"context"
	"testing"
)

type stubAdapter struct {
	platform Platform
	sent     []string
}

func (a *stubAdapter) Platform() Platform { return a.platform }

func (a *stubAdapter) SendMessage(_ context.Context, recipientID, text string, _ ReplyContext) (SendResult, error) {
	a.sent = append(a.sent, text)
	return SendResult{Sent: true}, nil
}

// capableAdapter additionally implements every optional capability.
type capableAdapter struct {
	stubAdapter
	typing, read, feedback int
}

func (a *capableAdapter) SendTypingOn(context.Context, string, string) error {
	a.typing++
	return nil
}
func (a *capableAdapter) SendTypingOff(context.Context, string) error { return nil }
func (a *capableAdapter) MarkAsRead(context.Context, string) error {
	a.read++
	return nil
}
func (a *capableAdapter) SendFeedbackRequest(context.Context, string, string) (SendResult, error) {
	a.feedback++
	return SendResult{Sent: true}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(&stubAdapter{platform: PlatformWhatsApp}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := r.Get(PlatformWhatsApp); !ok {
		t.Fatal("adapter not found after register")
	}
	if _, ok := r.Get(PlatformEmail); ok {
		t.Fatal("unregistered platform returned an adapter")
	}
}

func TestRegistry_RejectsDuplicateAndNil(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(&stubAdapter{platform: PlatformEmail}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&stubAdapter{platform: PlatformEmail}); err == nil {
		t.Fatal("duplicate registration must fail")
	}
	if err := r.Register(nil); err == nil {
		t.Fatal("nil adapter must fail")
	}
	if err := r.Register(&stubAdapter{platform: ""}); err == nil {
		t.Fatal("empty platform must fail")
	}
}

func TestRegistry_CapabilityQueries(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister(&capableAdapter{stubAdapter: stubAdapter{platform: PlatformWhatsApp}})
	r.MustRegister(&stubAdapter{platform: PlatformEmail})

	if _, ok := r.GetTypingNotifier(PlatformWhatsApp); !ok {
		t.Fatal("whatsapp adapter should support typing")
	}
	if _, ok := r.GetReadMarker(PlatformWhatsApp); !ok {
		t.Fatal("whatsapp adapter should support read marks")
	}
	if _, ok := r.GetFeedbackRequester(PlatformWhatsApp); !ok {
		t.Fatal("whatsapp adapter should support feedback requests")
	}

	if _, ok := r.GetTypingNotifier(PlatformEmail); ok {
		t.Fatal("plain adapter must not report typing support")
	}
	if _, ok := r.GetReadMarker(PlatformEmail); ok {
		t.Fatal("plain adapter must not report read-mark support")
	}
	if _, ok := r.GetFeedbackRequester(PlatformTelegram); ok {
		t.Fatal("missing platform must not report capabilities")
	}
}

func TestRegistry_PlatformsListsAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister(&stubAdapter{platform: PlatformWhatsApp})
	r.MustRegister(&stubAdapter{platform: PlatformInstagram})

	platforms := r.Platforms()
	if len(platforms) != 2 {
		t.Fatalf("want 2 platforms, got %v", platforms)
	}
}
