package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Options tune Redis acquisition.
type Options struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Redis is a SET NX lock with owner tokens.  When Redis itself fails the
// lock degrades to the in-process fallback; the database transaction still
// serialises writers across instances in that case.
type Redis struct {
	client   *redis.Client
	opts     Options
	fallback *Local
	log      *zap.Logger
}

func NewRedis(client *redis.Client, opts Options, log *zap.Logger) *Redis {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, opts: opts, fallback: NewLocal(), log: log}
}

// New returns a Redis locker when client is non-nil and a Local one otherwise.
func New(client *redis.Client, opts Options, log *zap.Logger) Locker {
	if client == nil {
		return NewLocal()
	}
	return NewRedis(client, opts, log)
}

func (r *Redis) Acquire(ctx context.Context, key string) (Lease, error) {
	lockKey := "lock:" + key
	token := uuid.NewString()

	for attempt := 0; attempt < r.opts.Retries; attempt++ {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.opts.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.log.Warn("redis lock unavailable, using local lock", zap.String("key", key), zap.Error(err))
			return r.fallback.Acquire(ctx, key)
		}
		if ok {
			return &redisLease{client: r.client, key: lockKey, token: token, ttl: r.opts.TTL}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.opts.RetryDelay):
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

func (l *redisLease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if n == 0 {
		return ErrNotOwned
	}
	return nil
}

// Extend pushes the expiry of a held lease out to ttl from now.
func Extend(ctx context.Context, lease Lease, ttl time.Duration) error {
	l, ok := lease.(*redisLease)
	if !ok {
		return nil
	}
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend lock: %w", err)
	}
	if n == 0 {
		return ErrNotOwned
	}
	return nil
}

// KeepAlive extends a Redis lease to its full TTL every third of the TTL
// until stop is called or ctx ends.  onErr, when set, receives failed
// extensions; renewal ends once the lease is found lost.  Leases that do
// not expire get a stop that does nothing.
func KeepAlive(ctx context.Context, lease Lease, onErr func(error)) (stop func()) {
	l, ok := lease.(*redisLease)
	if !ok || l.ttl <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(l.ttl / 3)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			err := Extend(ctx, l, l.ttl)
			if err == nil || ctx.Err() != nil {
				continue
			}
			if onErr != nil {
				onErr(err)
			}
			if errors.Is(err, ErrNotOwned) {
				return
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// IsContention reports whether err means another holder kept the lock.
func IsContention(err error) bool { return errors.Is(err, ErrNotAcquired) }
