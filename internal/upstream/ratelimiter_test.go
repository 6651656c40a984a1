package upstream

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Fatalf("burst waits should return immediately")
	}
}

func TestRateLimiterRefillUsesClock(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	now := time.Now()
	limiter.now = func() time.Time { return now }
	limiter.lastRefill = now

	if wait := limiter.take(); wait != 0 {
		t.Fatalf("expected first token immediately, got wait %s", wait)
	}
	if wait := limiter.take(); wait != time.Minute {
		t.Fatalf("expected a full interval wait, got %s", wait)
	}
	now = now.Add(time.Minute)
	if wait := limiter.take(); wait != 0 {
		t.Fatalf("expected token after refill, got wait %s", wait)
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(1, time.Second)
	_ = limiter.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected context deadline error")
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Fatalf("wait should stop after context cancellation")
	}
}
