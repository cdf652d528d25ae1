package throttle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonesentry/zonesentry/internal/throttle"
)

// fakeClock is an adjustable clock for TTL tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(repo throttle.Repository, clock *fakeClock) *throttle.Store {
	return throttle.NewStore(throttle.StoreConfig{
		Repo:   repo,
		Logger: zerolog.Nop(),
		Now:    clock.Now,
	})
}

func TestStore_SetThenExpire(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newTestStore(throttle.NewInMemoryRepository(), clock)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "danger:z1:u1", time.Hour, "high"))
	assert.True(t, store.IsThrottled(ctx, "danger:z1:u1"))
	assert.False(t, store.IsThrottled(ctx, "danger:z2:u1"))

	clock.Advance(time.Hour + time.Second)
	assert.False(t, store.IsThrottled(ctx, "danger:z1:u1"))
}

func TestStore_SetOverwritesExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newTestStore(throttle.NewInMemoryRepository(), clock)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", time.Minute, ""))
	clock.Advance(30 * time.Second)

	// Re-set extends the expiry from the current time.
	require.NoError(t, store.Set(ctx, "k", time.Minute, ""))
	clock.Advance(45 * time.Second)
	assert.True(t, store.IsThrottled(ctx, "k"))
}

func TestStore_Remove(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newTestStore(throttle.NewInMemoryRepository(), clock)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", time.Hour, ""))

	existed, err := store.Remove(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.False(t, store.IsThrottled(ctx, "k"))

	existed, err = store.Remove(ctx, "k")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestStore_SweepAndStats(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newTestStore(throttle.NewInMemoryRepository(), clock)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", time.Minute, ""))
	require.NoError(t, store.Set(ctx, "long", time.Hour, ""))

	clock.Advance(10 * time.Minute)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, throttle.Stats{Total: 2, Active: 1, Expired: 1}, stats)

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, throttle.Stats{Total: 1, Active: 1, Expired: 0}, stats)
}

// failingRepository simulates a persistence outage.
type failingRepository struct {
	err error
}

func (r *failingRepository) Get(context.Context, string) (*throttle.Entry, error) {
	return nil, r.err
}

func (r *failingRepository) Upsert(context.Context, *throttle.Entry) error { return r.err }

func (r *failingRepository) Delete(context.Context, string) (bool, error) { return false, r.err }

func (r *failingRepository) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, r.err
}

func (r *failingRepository) Stats(context.Context, time.Time) (throttle.Stats, error) {
	return throttle.Stats{}, r.err
}

func TestStore_ReadFailsOpen(t *testing.T) {
	backendErr := errors.New("connection refused")
	clock := &fakeClock{now: time.Now()}
	store := newTestStore(&failingRepository{err: backendErr}, clock)

	// A backend outage must not suppress notifications.
	assert.False(t, store.IsThrottled(context.Background(), "danger:z1:u1"))
}

func TestStore_WriteFailsClosed(t *testing.T) {
	backendErr := errors.New("connection refused")
	clock := &fakeClock{now: time.Now()}
	store := newTestStore(&failingRepository{err: backendErr}, clock)
	ctx := context.Background()

	err := store.Set(ctx, "k", time.Hour, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, backendErr)

	_, err = store.Remove(ctx, "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, backendErr)
}

func TestDangerKey(t *testing.T) {
	assert.Equal(t, "danger:zone42:user7", throttle.DangerKey("zone42", "user7"))
}
