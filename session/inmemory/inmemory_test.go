package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/askweb/models"
	"github.com/mohammad-safakhou/askweb/session"
)

func TestEnsureSessionReusesLiveID(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore()

	first, err := store.EnsureSession(ctx, "", time.Hour)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first.ID() == "" {
		t.Fatal("expected a generated id")
	}
	again, err := store.EnsureSession(ctx, first.ID(), time.Hour)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if again.ID() != first.ID() {
		t.Fatalf("expected same session, got %s and %s", first.ID(), again.ID())
	}

	other, _ := store.EnsureSession(ctx, "not-a-known-id", time.Hour)
	if other.ID() == "not-a-known-id" || other.ID() == first.ID() {
		t.Fatalf("expected a fresh id, got %s", other.ID())
	}
}

func TestHistoryIsAppendOnlyNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore()
	sess, _ := store.EnsureSession(ctx, "", time.Hour)

	for i := 1; i <= 3; i++ {
		entry := models.HistoryEntry{Query: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
		if err := sess.Append(ctx, entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := sess.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, want := range []string{"q3", "q2", "q1"} {
		if got[i].Query != want {
			t.Fatalf("entry %d: expected %s, got %s", i, want, got[i].Query)
		}
		if got[i].CreatedAt.IsZero() {
			t.Fatalf("entry %d: expected timestamp", i)
		}
	}

	// Mutating the returned slice must not touch the stored history.
	got[0].Query = "changed"
	again, _ := sess.History(ctx)
	if again[0].Query != "q3" {
		t.Fatalf("history was modified through returned slice")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore()
	a, _ := store.EnsureSession(ctx, "", time.Hour)
	b, _ := store.EnsureSession(ctx, "", time.Hour)

	_ = a.Append(ctx, models.HistoryEntry{Query: "only a"})
	hist, _ := b.History(ctx)
	if len(hist) != 0 {
		t.Fatalf("expected empty history for b, got %v", hist)
	}
}

func TestExpiredSessionIsReplaced(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore()
	old, _ := store.EnsureSession(ctx, "", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, err := store.GetSession(ctx, old.ID()); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	fresh, _ := store.EnsureSession(ctx, old.ID(), time.Hour)
	if fresh.ID() == old.ID() {
		t.Fatal("expected expired session to be replaced")
	}
	store.mu.RLock()
	held := len(store.sessions)
	store.mu.RUnlock()
	if held != 1 {
		t.Fatalf("expected expired session pruned, have %d", held)
	}
}

func TestConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore()
	sess, _ := store.EnsureSession(ctx, "", time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = sess.Append(ctx, models.HistoryEntry{Query: fmt.Sprintf("q%d", i)})
			_, _ = store.EnsureSession(ctx, sess.ID(), time.Hour)
		}(i)
	}
	wg.Wait()
	hist, _ := sess.History(ctx)
	if len(hist) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(hist))
	}
}
