// Package cache keeps remaining-seat counts in Redis so availability pages
// do not recount reservations on every request.
//
// Each showing has a generation counter next to its count.  Writers bump
// it after commit; a reader stores the count it computed only if the
// generation it saw before reading the database is still current, so a
// count read before a write never lands after that write's invalidation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss means no count is stored for the showing.
var ErrCacheMiss = errors.New("cache miss")

// genTTLFactor keeps generation keys alive well past any count they guard.
const genTTLFactor = 10

var generationScript = redis.NewScript(`
local g = redis.call("INCRBY", KEYS[1], 0)
redis.call("PEXPIRE", KEYS[1], ARGV[1])
return g
`)

var fillScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// SeatCache stores remaining counts per showing key.
type SeatCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSeatCache stores counts under prefix for ttl.
func NewSeatCache(client *redis.Client, prefix string, ttl time.Duration) *SeatCache {
	if prefix == "" {
		prefix = "seats"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SeatCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *SeatCache) key(showing string) string {
	return fmt.Sprintf("%s:remaining:%s", c.prefix, showing)
}

func (c *SeatCache) genKey(showing string) string {
	return fmt.Sprintf("%s:gen:%s", c.prefix, showing)
}

func (c *SeatCache) genTTL() time.Duration { return genTTLFactor * c.ttl }

func (c *SeatCache) GetRemaining(ctx context.Context, showing string) (int, error) {
	n, err := c.client.Get(ctx, c.key(showing)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("seat cache get: %w", err)
	}
	return n, nil
}

// Generation returns the showing's current write generation.
func (c *SeatCache) Generation(ctx context.Context, showing string) (int64, error) {
	g, err := generationScript.Run(ctx, c.client, []string{c.genKey(showing)}, c.genTTL().Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("seat cache generation: %w", err)
	}
	return g, nil
}

// SetRemaining stores n unless a writer has moved the generation past gen.
func (c *SeatCache) SetRemaining(ctx context.Context, showing string, gen int64, n int) error {
	keys := []string{c.genKey(showing), c.key(showing)}
	if err := fillScript.Run(ctx, c.client, keys, gen, n, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("seat cache set: %w", err)
	}
	return nil
}

// Invalidate bumps the showing's generation and drops its count.
func (c *SeatCache) Invalidate(ctx context.Context, showing string) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, c.genKey(showing))
	pipe.PExpire(ctx, c.genKey(showing), c.genTTL())
	pipe.Del(ctx, c.key(showing))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("seat cache invalidate: %w", err)
	}
	return nil
}

// InvalidateDetail does what Invalidate does for every showing of a movie
// detail, across all dates and showtimes.
func (c *SeatCache) InvalidateDetail(ctx context.Context, detailID uint64) error {
	suffix := strconv.FormatUint(detailID, 10) + ":*"
	gens, err := c.scan(ctx, c.genKey(suffix))
	if err != nil {
		return err
	}
	counts, err := c.scan(ctx, c.key(suffix))
	if err != nil {
		return err
	}
	if len(gens) == 0 && len(counts) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, k := range gens {
		pipe.Incr(ctx, k)
		pipe.PExpire(ctx, k, c.genTTL())
	}
	if len(counts) > 0 {
		pipe.Del(ctx, counts...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("seat cache invalidate: %w", err)
	}
	return nil
}

func (c *SeatCache) scan(ctx context.Context, pattern string) ([]string, error) {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("seat cache scan: %w", err)
	}
	return keys, nil
}

// Nop is used when Redis is not configured; every read misses.
type Nop struct{}

func (Nop) GetRemaining(context.Context, string) (int, error)      { return 0, ErrCacheMiss }
func (Nop) Generation(context.Context, string) (int64, error)      { return 0, nil }
func (Nop) SetRemaining(context.Context, string, int64, int) error { return nil }
func (Nop) Invalidate(context.Context, string) error               { return nil }
func (Nop) InvalidateDetail(context.Context, uint64) error         { return nil }
