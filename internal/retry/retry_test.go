package retry

import (
	"context"
	"testing"
	"time"

	"cryptopulse/internal/domain"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func statusErr(status int) error {
	kind := domain.KindUpstreamStatus
	switch status {
	case 429:
		kind = domain.KindRateLimited
	case 401:
		kind = domain.KindUnauthorized
	case 402:
		kind = domain.KindPaymentRequired
	case 400:
		kind = domain.KindInvalidRequest
	}
	return &domain.FetchError{Kind: kind, Message: "stub", Status: status}
}

type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func noJitter(time.Duration) time.Duration { return 0 }

func TestPolicyDelayMonotonicAndCapped(t *testing.T) {
	p := DefaultPolicy()
	prev := time.Duration(0)
	for n := 2; n <= 12; n++ {
		d := p.Delay(n)
		if d < prev {
			t.Fatalf("delay for attempt %d decreased: %s < %s", n, d, prev)
		}
		if d > p.MaxDelay {
			t.Fatalf("delay for attempt %d exceeds max: %s", n, d)
		}
		prev = d
	}
	if got := p.Delay(2); got != 60*time.Second {
		t.Fatalf("expected 60s before attempt 2, got %s", got)
	}
	if got := p.Delay(3); got != 120*time.Second {
		t.Fatalf("expected 120s before attempt 3, got %s", got)
	}
	if got := p.Delay(5); got != 300*time.Second {
		t.Fatalf("expected cap at 300s, got %s", got)
	}
}

func TestNextDelayAddsBoundedJitter(t *testing.T) {
	e := NewEngine(DefaultPolicy(), nil)
	for i := 0; i < 50; i++ {
		d := e.NextDelay(2)
		if d < 60*time.Second || d >= 61*time.Second {
			t.Fatalf("jittered delay out of range: %s", d)
		}
	}
}

func TestExecuteRetriesRateLimitThenSucceeds(t *testing.T) {
	rec := &recordingSleep{}
	core, logs := observer.New(zap.InfoLevel)
	e := NewEngine(DefaultPolicy(), zap.New(core), WithSleep(rec.sleep), WithJitter(noJitter))

	responses := []int{429, 429, 200}
	calls := 0
	out := Execute(context.Background(), e, "santiment", func(context.Context) (int, error) {
		status := responses[calls]
		calls++
		if status != 200 {
			return 0, statusErr(status)
		}
		return 42, nil
	})

	if !out.OK() || out.Value != 42 || out.Source != domain.SourceLive {
		t.Fatalf("expected live success, got %+v", out)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(rec.delays) != 2 || rec.delays[0] != 60*time.Second || rec.delays[1] != 120*time.Second {
		t.Fatalf("unexpected delays: %v", rec.delays)
	}
	if logs.Len() != 3 {
		t.Fatalf("expected one log line per attempt, got %d", logs.Len())
	}
}

func TestExecuteDoesNotRetryTerminalKinds(t *testing.T) {
	for _, status := range []int{400, 401, 402} {
		rec := &recordingSleep{}
		e := NewEngine(DefaultPolicy(), zap.NewNop(), WithSleep(rec.sleep), WithJitter(noJitter))
		calls := 0
		out := Execute(context.Background(), e, "coinmetrics", func(context.Context) (string, error) {
			calls++
			return "", statusErr(status)
		})
		if out.Status != domain.StatusFailure || out.Err.Status != status {
			t.Fatalf("status %d: expected terminal failure, got %+v", status, out)
		}
		if calls != 1 || len(rec.delays) != 0 {
			t.Fatalf("status %d: expected one call and no delay, got %d calls %v", status, calls, rec.delays)
		}
	}

	e := NewEngine(DefaultPolicy(), zap.NewNop(), WithSleep((&recordingSleep{}).sleep))
	calls := 0
	out := Execute(context.Background(), e, "coinmetrics", func(context.Context) (string, error) {
		calls++
		return "", domain.NewError(domain.KindInsufficientData, "one point")
	})
	if out.Kind() != domain.KindInsufficientData || calls != 1 {
		t.Fatalf("expected insufficient_data after one call, got %+v (%d calls)", out, calls)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	rec := &recordingSleep{}
	e := NewEngine(DefaultPolicy(), zap.NewNop(), WithSleep(rec.sleep), WithJitter(noJitter))
	calls := 0
	out := Execute(context.Background(), e, "cryptopanic", func(context.Context) (int, error) {
		calls++
		return 0, statusErr(503)
	})
	if out.Kind() != domain.KindExhausted {
		t.Fatalf("expected exhausted, got %+v", out)
	}
	if out.Err.Status != 503 {
		t.Fatalf("expected last status to be kept, got %d", out.Err.Status)
	}
	if calls != 3 || len(rec.delays) != 2 {
		t.Fatalf("expected 3 calls and 2 delays, got %d calls %v", calls, rec.delays)
	}
}

func TestExecuteCancelDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	e := NewEngine(DefaultPolicy(), zap.NewNop(), WithSleep(sleep))
	calls := 0
	out := Execute(ctx, e, "coinmetrics", func(context.Context) (int, error) {
		calls++
		return 0, statusErr(429)
	})
	if out.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled outcome, got %+v", out)
	}
	if calls != 1 {
		t.Fatalf("expected no call after cancellation, got %d", calls)
	}
}

func TestExecuteDeadlineIsTimeoutFailure(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	e := NewEngine(DefaultPolicy(), zap.NewNop())
	called := false
	out := Execute(ctx, e, "santiment", func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	if out.Status != domain.StatusFailure || out.Kind() != domain.KindTimeout {
		t.Fatalf("expected timeout failure, got %+v", out)
	}
	if called {
		t.Fatal("operation must not run after the deadline")
	}
}

func TestSleepContextHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); err == nil {
		t.Fatal("expected context error")
	}
}

func TestExecuteSkipsRetryPastDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	rec := &recordingSleep{}
	e := NewEngine(DefaultPolicy(), zap.NewNop(), WithSleep(rec.sleep), WithJitter(noJitter))
	calls := 0
	out := Execute(ctx, e, "santiment", func(context.Context) (int, error) {
		calls++
		return 0, statusErr(429)
	})
	if out.Kind() != domain.KindExhausted {
		t.Fatalf("expected exhausted so the chain can advance, got %+v", out)
	}
	if calls != 1 || len(rec.delays) != 0 {
		t.Fatalf("expected a single call and no sleep, got %d calls %v", calls, rec.delays)
	}
}
