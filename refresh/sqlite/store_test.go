package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/sessionauth/refresh"
	"github.com/MrEthical07/sessionauth/refresh/refreshtest"
	"github.com/MrEthical07/sessionauth/refresh/sqlite"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newStore(t *testing.T, retention time.Duration, c *clock) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(
		filepath.Join(t.TempDir(), "refresh.db"),
		sqlite.WithRetention(retention),
		sqlite.WithClock(c.Now),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.ApplyMigrations())
	return store
}

func TestStoreConformance(t *testing.T) {
	refreshtest.Run(t, func(t *testing.T, retention time.Duration) refreshtest.Harness {
		c := &clock{now: time.Unix(1_700_000_000, 0)}
		return refreshtest.Harness{Store: newStore(t, retention, c), Advance: c.Advance}
	})
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	c := &clock{now: time.Now()}
	store := newStore(t, time.Hour, c)
	require.NoError(t, store.ApplyMigrations())
}

func TestInMemoryDSN(t *testing.T) {
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.ApplyMigrations())

	ctx := context.Background()
	_, err = store.Put(ctx, "u1", "tok")
	require.NoError(t, err)

	_, err = store.Find(ctx, "u1", "tok")
	require.NoError(t, err)
	require.NoError(t, store.Ping(ctx))
}

func TestDeleteExpiredReclaimsRows(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	store := newStore(t, time.Hour, c)
	ctx := context.Background()

	_, err := store.Put(ctx, "u1", "old")
	require.NoError(t, err)
	c.Advance(30 * time.Minute)
	_, err = store.Put(ctx, "u1", "young")
	require.NoError(t, err)
	c.Advance(31 * time.Minute)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = store.Find(ctx, "u1", "young")
	require.NoError(t, err)
}

func TestPutReusesHashOfExpiredRow(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	store := newStore(t, time.Hour, c)
	ctx := context.Background()

	_, err := store.Put(ctx, "u1", "tok")
	require.NoError(t, err)
	c.Advance(2 * time.Hour)

	_, err = store.Put(ctx, "u1", "tok")
	require.NoError(t, err)
}

func TestReplaceRejectsTakenValue(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	store := newStore(t, time.Hour, c)
	ctx := context.Background()

	rec, err := store.Put(ctx, "u1", "a")
	require.NoError(t, err)
	_, err = store.Put(ctx, "u1", "b")
	require.NoError(t, err)

	err = store.Replace(ctx, rec.ID, "a", "b")
	require.ErrorIs(t, err, refresh.ErrDuplicateRecord)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	c := &clock{now: time.Now()}
	store := newStore(t, time.Hour, c)
	require.NoError(t, store.Close())

	_, err := store.Find(context.Background(), "u1", "tok")
	require.ErrorIs(t, err, refresh.ErrUnavailable)
}
