package thread

import (
	"context"
	"testing"
)

func TestMemoryStore_SaveIsWriteOnce(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	first := Mapping{ThreadKey: "<root@x>", ConversationID: "conv-1", Subject: "Hello"}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	// A concurrent second turn racing the first must not steal the thread.
	if err := store.Save(ctx, Mapping{ThreadKey: "<root@x>", ConversationID: "conv-2"}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, ok, err := store.Resolve(ctx, "<root@x>")
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if got.ConversationID != "conv-1" {
		t.Fatalf("first write must win, got %q", got.ConversationID)
	}
	if got.Subject != "Hello" {
		t.Fatalf("mapping fields lost: %+v", got)
	}
}

func TestMemoryStore_ResolveMiss(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, ok, err := store.Resolve(context.Background(), "<missing@x>"); ok || err != nil {
		t.Fatalf("want miss, got ok=%v err=%v", ok, err)
	}
}
