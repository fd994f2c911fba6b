package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisOrSkip(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Nop
	gen, err := c.Generation(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, c.SetRemaining(ctx, "k", gen, 5))
	_, err = c.GetRemaining(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Invalidate(ctx, "k"))
}

func TestSeatCache(t *testing.T) {
	client := redisOrSkip(t)
	ctx := context.Background()

	c := NewSeatCache(client, "test-seats", 5*time.Second)
	showing := "1:2026-01-01:" + time.Now().Format("150405.000000")

	_, err := c.GetRemaining(ctx, showing)
	assert.ErrorIs(t, err, ErrCacheMiss)

	gen, err := c.Generation(ctx, showing)
	require.NoError(t, err)
	require.NoError(t, c.SetRemaining(ctx, showing, gen, -2))
	n, err := c.GetRemaining(ctx, showing)
	require.NoError(t, err)
	assert.Equal(t, -2, n)

	require.NoError(t, c.Invalidate(ctx, showing))
	_, err = c.GetRemaining(ctx, showing)
	assert.ErrorIs(t, err, ErrCacheMiss)

	next, err := c.Generation(ctx, showing)
	require.NoError(t, err)
	assert.Greater(t, next, gen)
}

func TestSeatCacheDropsFillAfterWrite(t *testing.T) {
	client := redisOrSkip(t)
	ctx := context.Background()

	c := NewSeatCache(client, "test-seats", 5*time.Second)
	showing := "2:2026-01-01:" + time.Now().Format("150405.000000")

	tests := []struct {
		name       string
		invalidate func() error
	}{
		{name: "showing", invalidate: func() error { return c.Invalidate(ctx, showing) }},
		{name: "detail", invalidate: func() error { return c.InvalidateDetail(ctx, 2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := c.Generation(ctx, showing)
			require.NoError(t, err)
			require.NoError(t, tt.invalidate())

			require.NoError(t, c.SetRemaining(ctx, showing, gen, 10))
			_, err = c.GetRemaining(ctx, showing)
			assert.ErrorIs(t, err, ErrCacheMiss)
		})
	}
}

func TestSeatCacheInvalidateDetail(t *testing.T) {
	client := redisOrSkip(t)
	ctx := context.Background()

	c := NewSeatCache(client, "test-seats-"+time.Now().Format("150405.000000"), 5*time.Second)
	fill := func(showing string, n int) {
		gen, err := c.Generation(ctx, showing)
		require.NoError(t, err)
		require.NoError(t, c.SetRemaining(ctx, showing, gen, n))
	}
	fill("7:2026-01-01:18:00", 3)
	fill("7:2026-01-02:20:00", 4)
	fill("8:2026-01-01:18:00", 5)

	require.NoError(t, c.InvalidateDetail(ctx, 7))

	_, err := c.GetRemaining(ctx, "7:2026-01-01:18:00")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.GetRemaining(ctx, "7:2026-01-02:20:00")
	assert.ErrorIs(t, err, ErrCacheMiss)
	n, err := c.GetRemaining(ctx, "8:2026-01-01:18:00")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
