package refresh_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/sessionauth/refresh"
	"github.com/MrEthical07/sessionauth/refresh/refreshtest"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStoreConformance(t *testing.T) {
	refreshtest.Run(t, func(t *testing.T, retention time.Duration) refreshtest.Harness {
		clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
		return refreshtest.Harness{
			Store:   refresh.NewMemoryStore(retention, clock.Now),
			Advance: clock.Advance,
		}
	})
}

func TestMemoryStoreDeleteExpired(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	store := refresh.NewMemoryStore(time.Hour, clock.Now)
	ctx := context.Background()

	if _, err := store.Put(ctx, "u1", "old"); err != nil {
		t.Fatalf("put: %v", err)
	}
	clock.Advance(30 * time.Minute)
	if _, err := store.Put(ctx, "u1", "young"); err != nil {
		t.Fatalf("put: %v", err)
	}
	clock.Advance(31 * time.Minute)

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reclaimed record, got %d", n)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 remaining record, got %d", store.Len())
	}
	if _, err := store.Find(ctx, "u1", "young"); err != nil {
		t.Fatalf("young record lost: %v", err)
	}
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	store := refresh.NewMemoryStore(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Put(ctx, "u1", "tok"); err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if store.Len() != 0 {
		t.Fatalf("cancelled put must not store anything")
	}
}
