package upstream

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by every call to one upstream.
type RateLimiter struct {
	mu             sync.Mutex
	tokens         int
	maxTokens      int
	refillInterval time.Duration
	lastRefill     time.Time
	now            func() time.Time
}

// NewRateLimiter allows a burst of maxTokens calls and one more per refillInterval.
func NewRateLimiter(maxTokens int, refillInterval time.Duration) *RateLimiter {
	if maxTokens <= 0 {
		maxTokens = 1
	}
	if refillInterval <= 0 {
		refillInterval = time.Second
	}
	return &RateLimiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
		now:            time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.take()
		if wait == 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take consumes a token, or returns how long until the next refill.
func (r *RateLimiter) take() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if n := int(now.Sub(r.lastRefill) / r.refillInterval); n > 0 {
		r.tokens = min(r.tokens+n, r.maxTokens)
		r.lastRefill = r.lastRefill.Add(time.Duration(n) * r.refillInterval)
	}
	if r.tokens > 0 {
		r.tokens--
		return 0
	}
	wait := r.refillInterval - now.Sub(r.lastRefill)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait
}

// Limits maps upstream names to their limiter.
type Limits map[string]*RateLimiter

// DefaultLimits reflects the free-tier quotas of each upstream.
func DefaultLimits() Limits {
	return Limits{
		Santiment:   NewRateLimiter(10, 6*time.Second),
		CoinMetrics: NewRateLimiter(10, 6*time.Second),
		CryptoPanic: NewRateLimiter(5, 12*time.Second),
		FearGreed:   NewRateLimiter(5, 12*time.Second),
	}
}

func (l Limits) wait(ctx context.Context, name string) error {
	if l == nil {
		return nil
	}
	limiter, ok := l[name]
	if !ok || limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
