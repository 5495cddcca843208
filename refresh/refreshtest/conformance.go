// Package refreshtest holds the behavioural suite every refresh.Store driver
// must pass.
package refreshtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/sessionauth/refresh"
)

// Harness is one freshly created store plus a way to move its clock.
type Harness struct {
	Store   refresh.Store
	Advance func(time.Duration)
}

// Factory builds an empty store with the given retention window.
type Factory func(t *testing.T, retention time.Duration) Harness

// Run executes the suite against stores built by newHarness.
func Run(t *testing.T, newHarness Factory) {
	t.Helper()

	t.Run("put then find", func(t *testing.T) { testPutFind(t, newHarness) })
	t.Run("put duplicate", func(t *testing.T) { testPutDuplicate(t, newHarness) })
	t.Run("replace swaps value", func(t *testing.T) { testReplace(t, newHarness) })
	t.Run("replace unknown record", func(t *testing.T) { testReplaceUnknown(t, newHarness) })
	t.Run("delete idempotent", func(t *testing.T) { testDelete(t, newHarness) })
	t.Run("retention hides records", func(t *testing.T) { testRetention(t, newHarness) })
	t.Run("rotation keeps deadline", func(t *testing.T) { testRotationKeepsDeadline(t, newHarness) })
	t.Run("replace race single winner", func(t *testing.T) { testReplaceRace(t, newHarness) })
}

func testPutFind(t *testing.T, newHarness Factory) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	rec, err := h.Store.Put(ctx, "u1", "token-a")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if rec.ID == "" || rec.SubjectID != "u1" || rec.TokenHash != refresh.HashToken("token-a") {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := h.Store.Find(ctx, "u1", "token-a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("expected record %s, got %s", rec.ID, got.ID)
	}

	if _, err := h.Store.Find(ctx, "u2", "token-a"); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other subject, got %v", err)
	}
	if _, err := h.Store.Find(ctx, "u1", "token-b"); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}
}

func testPutDuplicate(t *testing.T, newHarness Factory) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	if _, err := h.Store.Put(ctx, "u1", "token-a"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := h.Store.Put(ctx, "u1", "token-a"); !errors.Is(err, refresh.ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}
}

func testReplace(t *testing.T, newHarness Factory) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	rec, err := h.Store.Put(ctx, "u1", "token-a")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := h.Store.Replace(ctx, rec.ID, "token-a", "token-b"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if _, err := h.Store.Find(ctx, "u1", "token-a"); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("old value still findable: %v", err)
	}
	got, err := h.Store.Find(ctx, "u1", "token-b")
	if err != nil {
		t.Fatalf("find new value: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("rotation must keep record id: want %s, got %s", rec.ID, got.ID)
	}

	if err := h.Store.Replace(ctx, rec.ID, "token-a", "token-c"); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("expected stale replace rejected, got %v", err)
	}
}

func testReplaceUnknown(t *testing.T, newHarness Factory) {
	h := newHarness(t, time.Hour)
	if err := h.Store.Replace(context.Background(), refresh.NewRecordID(time.Now()), "a", "b"); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, newHarness Factory) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	if _, err := h.Store.Put(ctx, "u1", "token-a"); err != nil {
		t.Fatalf("put: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := h.Store.Delete(ctx, "token-a"); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if err := h.Store.Delete(ctx, "never-issued"); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
	if _, err := h.Store.Find(ctx, "u1", "token-a"); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func testRetention(t *testing.T, newHarness Factory) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	rec, err := h.Store.Put(ctx, "u1", "token-a")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	h.Advance(59 * time.Minute)
	if _, err := h.Store.Find(ctx, "u1", "token-a"); err != nil {
		t.Fatalf("record expired early: %v", err)
	}

	h.Advance(2 * time.Minute)
	if _, err := h.Store.Find(ctx, "u1", "token-a"); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("expected ErrNotFound past retention, got %v", err)
	}
	if err := h.Store.Replace(ctx, rec.ID, "token-a", "token-b"); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("expected replace of expired record rejected, got %v", err)
	}
}

func testRotationKeepsDeadline(t *testing.T, newHarness Factory) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	rec, err := h.Store.Put(ctx, "u1", "token-a")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	h.Advance(40 * time.Minute)
	if err := h.Store.Replace(ctx, rec.ID, "token-a", "token-b"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	h.Advance(21 * time.Minute)
	if _, err := h.Store.Find(ctx, "u1", "token-b"); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("rotation extended retention: %v", err)
	}
}

func testReplaceRace(t *testing.T, newHarness Factory) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	rec, err := h.Store.Put(ctx, "u1", "current")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	type outcome struct {
		next string
		err  error
	}
	results := make(chan outcome, workers)
	for i := 0; i < workers; i++ {
		go func(next string) {
			defer wg.Done()
			<-start
			results <- outcome{next: next, err: h.Store.Replace(ctx, rec.ID, "current", next)}
		}(fmt.Sprintf("next-%02d", i))
	}

	close(start)
	wg.Wait()
	close(results)

	var winner string
	success := 0
	for res := range results {
		switch {
		case res.err == nil:
			success++
			winner = res.next
		case errors.Is(res.err, refresh.ErrNotFound):
		default:
			t.Fatalf("unexpected replace error: %v", res.err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
	if _, err := h.Store.Find(ctx, "u1", winner); err != nil {
		t.Fatalf("winner value not stored: %v", err)
	}
}
