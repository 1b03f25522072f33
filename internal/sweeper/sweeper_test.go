package sweeper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/session"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeExpirer struct {
	expired []string
}

func (e *fakeExpirer) TimeoutEntry(_ context.Context, entry session.Entry) {
	e.expired = append(e.expired, entry.ExternalUserID)
}

func TestSweep_ExpiresOnlyIdleSessions(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	ctx := context.Background()

	current := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return current })
	_ = store.Save(ctx, channel.PlatformWhatsApp, "idle-user", "conv-1")
	current = current.Add(30 * time.Minute)
	_ = store.Save(ctx, channel.PlatformWhatsApp, "active-user", "conv-2")

	expirer := &fakeExpirer{}
	s := New(testLogger, store, expirer, 15*time.Minute, time.Minute, 50)
	s.SetItemPause(0)
	s.Sweep(ctx)

	if len(expirer.expired) != 1 || expirer.expired[0] != "idle-user" {
		t.Fatalf("expired: %v", expirer.expired)
	}
}

func TestSweep_HonorsPageSize(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	ctx := context.Background()

	current := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return current })
	for _, user := range []string{"u1", "u2", "u3", "u4"} {
		_ = store.Save(ctx, channel.PlatformWhatsApp, user, "conv")
	}
	current = current.Add(time.Hour)

	expirer := &fakeExpirer{}
	s := New(testLogger, store, expirer, 15*time.Minute, time.Minute, 2)
	s.SetItemPause(0)
	s.Sweep(ctx)

	if len(expirer.expired) != 2 {
		t.Fatalf("page size not honored: %v", expirer.expired)
	}
}

func TestSweep_EmptyStoreNoCalls(t *testing.T) {
	t.Parallel()

	expirer := &fakeExpirer{}
	s := New(testLogger, session.NewMemoryStore(), expirer, 15*time.Minute, time.Minute, 50)
	s.SetItemPause(0)
	s.Sweep(context.Background())

	if len(expirer.expired) != 0 {
		t.Fatalf("expired on empty store: %v", expirer.expired)
	}
}

func TestSweep_CancelledContextStopsBetweenItems(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	current := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return current })
	_ = store.Save(context.Background(), channel.PlatformWhatsApp, "u1", "conv")
	_ = store.Save(context.Background(), channel.PlatformWhatsApp, "u2", "conv")
	current = current.Add(time.Hour)

	expirer := &fakeExpirer{}
	s := New(testLogger, store, expirer, 15*time.Minute, time.Minute, 50)
	s.SetItemPause(time.Millisecond)
	cancel()
	s.Sweep(ctx)

	if len(expirer.expired) > 1 {
		t.Fatalf("sweep continued after cancel: %v", expirer.expired)
	}
}
