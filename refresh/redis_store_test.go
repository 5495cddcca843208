package refresh_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionauth/refresh"
	"github.com/MrEthical07/sessionauth/refresh/refreshtest"
)

func newRedisStore(t *testing.T, retention time.Duration) (*refresh.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return refresh.NewRedisStore(rdb, "rt", retention), mr
}

func TestRedisStoreConformance(t *testing.T) {
	refreshtest.Run(t, func(t *testing.T, retention time.Duration) refreshtest.Harness {
		store, mr := newRedisStore(t, retention)
		return refreshtest.Harness{Store: store, Advance: mr.FastForward}
	})
}

func TestRedisStoreNeverStoresRawToken(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	const token = "raw-refresh-token-value"
	rec, err := store.Put(ctx, "u1", token)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	for _, key := range mr.Keys() {
		if strings.Contains(key, token) {
			t.Fatalf("raw token leaked into key %q", key)
		}
	}
	if got := mr.HGet("rt:rec:"+rec.ID, "th"); got != refresh.HashToken(token) {
		t.Fatalf("expected stored hash, got %q", got)
	}
	if ttl := mr.TTL("rt:rec:" + rec.ID); ttl != time.Hour {
		t.Fatalf("expected record TTL 1h, got %s", ttl)
	}
}

func TestRedisStoreReplaceRejectsTakenValue(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	ctx := context.Background()

	rec, err := store.Put(ctx, "u1", "a")
	if err != nil {
		t.Fatalf("put a: %v", err)
	}
	if _, err := store.Put(ctx, "u1", "b"); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if err := store.Replace(ctx, rec.ID, "a", "b"); !errors.Is(err, refresh.ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}
	if _, err := store.Find(ctx, "u1", "a"); err != nil {
		t.Fatalf("failed replace must leave record untouched: %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	mr.Close()

	ctx := context.Background()
	if _, err := store.Put(ctx, "u1", "a"); !errors.Is(err, refresh.ErrUnavailable) {
		t.Fatalf("put: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.Find(ctx, "u1", "a"); !errors.Is(err, refresh.ErrUnavailable) {
		t.Fatalf("find: expected ErrUnavailable, got %v", err)
	}
	if err := store.Replace(ctx, "id", "a", "b"); !errors.Is(err, refresh.ErrUnavailable) {
		t.Fatalf("replace: expected ErrUnavailable, got %v", err)
	}
	if err := store.Delete(ctx, "a"); !errors.Is(err, refresh.ErrUnavailable) {
		t.Fatalf("delete: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, refresh.ErrUnavailable) {
		t.Fatalf("ping: expected ErrUnavailable, got %v", err)
	}
}
