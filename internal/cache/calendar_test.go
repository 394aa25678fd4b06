package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/roomreserve/internal/cache"
)

func setupTestCache(t *testing.T) (*cache.CalendarCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.New(cache.Config{
		Addr:      mr.Addr(),
		KeyPrefix: "test:",
		TTL:       time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func TestCalendarCache_SetGet(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	payload := []byte(`{"room_id":"r1","days":[]}`)
	require.NoError(t, c.Set(ctx, "r1", "2025-03-10", 90, payload))

	got, hit, err := c.Get(ctx, "r1", "2025-03-10", 90)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, payload, got)
}

func TestCalendarCache_MissOnUnknownWindow(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "r1", "2025-03-10", 90, []byte("{}")))

	// Same room, different window parameters.
	_, hit, err := c.Get(ctx, "r1", "2025-03-10", 30)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = c.Get(ctx, "r1", "2025-03-11", 90)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCalendarCache_InvalidateRoom(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "r1", "2025-03-10", 90, []byte("a")))
	require.NoError(t, c.Set(ctx, "r1", "2025-04-01", 30, []byte("b")))
	require.NoError(t, c.Set(ctx, "r2", "2025-03-10", 90, []byte("c")))

	require.NoError(t, c.InvalidateRoom(ctx, "r1"))

	_, hit, err := c.Get(ctx, "r1", "2025-03-10", 90)
	require.NoError(t, err)
	assert.False(t, hit, "r1 windows should be dropped")

	_, hit, err = c.Get(ctx, "r1", "2025-04-01", 30)
	require.NoError(t, err)
	assert.False(t, hit, "r1 windows should be dropped")

	_, hit, err = c.Get(ctx, "r2", "2025-03-10", 90)
	require.NoError(t, err)
	assert.True(t, hit, "other rooms must be untouched")
}

func TestCalendarCache_TTLExpiry(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "r1", "2025-03-10", 90, []byte("{}")))

	mr.FastForward(2 * time.Minute)

	_, hit, err := c.Get(ctx, "r1", "2025-03-10", 90)
	require.NoError(t, err)
	assert.False(t, hit, "entry should expire with the TTL")
}
