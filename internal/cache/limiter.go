package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter increments key and sets its expiry on first use.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisCounter struct {
	client *redis.Client
}

// NewRedisCounter counts with INCR + EXPIRE NX in one round trip.
func NewRedisCounter(client *redis.Client) Counter {
	return &redisCounter{client: client}
}

func (c *redisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// WindowLimiter allows at most limit calls per client per window.
type WindowLimiter struct {
	counter Counter
	limit   int64
	window  time.Duration
	prefix  string
	now     func() time.Time
}

func NewWindowLimiter(counter Counter, limit int, window time.Duration) *WindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &WindowLimiter{
		counter: counter,
		limit:   int64(limit),
		window:  window,
		prefix:  "cryptopulse:ratelimit",
		now:     time.Now,
	}
}

// Allow reports whether client may make another call in the current window
// and how many calls remain. Counter errors are returned with allowed=true.
func (l *WindowLimiter) Allow(ctx context.Context, client string) (bool, int64, error) {
	if l == nil || l.counter == nil || l.limit <= 0 {
		return true, -1, nil
	}
	bucket := l.now().UnixNano() / int64(l.window)
	key := fmt.Sprintf("%s:%s:%d", l.prefix, client, bucket)
	n, err := l.counter.Incr(ctx, key, l.window)
	if err != nil {
		return true, -1, err
	}
	remaining := l.limit - n
	if remaining < 0 {
		remaining = 0
	}
	return n <= l.limit, remaining, nil
}
