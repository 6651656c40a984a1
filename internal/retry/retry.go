// Package retry runs an upstream call under a bounded exponential backoff
// policy and reports the result as a domain.Outcome.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"cryptopulse/internal/domain"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 60 * time.Second
	defaultMaxDelay     = 300 * time.Second
	defaultJitter       = time.Second
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       time.Duration
}

// DefaultPolicy returns three attempts with 60s initial and 300s maximum delay.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Jitter:       defaultJitter,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// Delay returns the base wait before attempt n (n >= 2), without jitter:
// InitialDelay doubled once per earlier retry, capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	d := p.InitialDelay
	for i := 2; i < attempt; i++ {
		if d >= p.MaxDelay/2 {
			return p.MaxDelay
		}
		d *= 2
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Op is one attempt of an upstream call.
type Op[T any] func(ctx context.Context) (T, error)

// Engine applies a Policy. It holds no per-call state and is safe to share.
type Engine struct {
	policy Policy
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
	now    func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSleep replaces the delay primitive. It must return ctx.Err() when ctx
// finishes before d elapses.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// WithJitter replaces the jitter source.
func WithJitter(fn func(max time.Duration) time.Duration) Option {
	return func(e *Engine) {
		if fn != nil {
			e.jitter = fn
		}
	}
}

// WithClock replaces the clock used to compare delays against deadlines.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

func NewEngine(policy Policy, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		policy: policy.normalized(),
		logger: logger,
		sleep:  sleepContext,
		jitter: randomJitter,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the effective policy.
func (e *Engine) Policy() Policy { return e.policy }

// NextDelay returns the full wait (base plus jitter) before attempt n.
func (e *Engine) NextDelay(attempt int) time.Duration {
	d := e.policy.Delay(attempt)
	if e.policy.Jitter > 0 {
		d += e.jitter(e.policy.Jitter)
	}
	return d
}

// Execute runs op until it succeeds, fails terminally, runs out of attempts or
// ctx finishes. A retry whose delay would outlast the ctx deadline is not
// attempted; the call is reported as exhausted so a fallback can still run.
// Successful values are tagged SourceLive; fallback chains re-tag them per tier.
func Execute[T any](ctx context.Context, e *Engine, target string, op Op[T]) domain.Outcome[T] {
	var last *domain.FetchError
	for attempt := 1; ; attempt++ {
		if cerr := domain.ContextError(ctx); cerr != nil {
			e.logAttempt(attempt, target, string(cerr.Kind), cerr, 0)
			return contextOutcome[T](cerr)
		}

		value, err := op(ctx)
		if err == nil {
			e.logAttempt(attempt, target, "success", nil, 0)
			return domain.Success(value, domain.SourceLive)
		}

		fe := domain.AsFetchError(err)
		if cerr := domain.ContextError(ctx); cerr != nil {
			fe = cerr
		}
		switch fe.Kind {
		case domain.KindCancelled, domain.KindTimeout:
			e.logAttempt(attempt, target, string(fe.Kind), fe, 0)
			return contextOutcome[T](fe)
		}
		last = fe

		if !fe.Kind.Retryable() {
			e.logAttempt(attempt, target, "terminal", fe, 0)
			return domain.Failure[T](fe)
		}
		if attempt >= e.policy.MaxAttempts {
			e.logAttempt(attempt, target, "exhausted", fe, 0)
			return domain.Failure[T](&domain.FetchError{
				Kind:    domain.KindExhausted,
				Message: target + ": " + last.Error(),
				Status:  last.Status,
				Err:     last,
			})
		}

		delay := e.NextDelay(attempt + 1)
		if deadline, ok := ctx.Deadline(); ok && e.now().Add(delay).After(deadline) {
			e.logAttempt(attempt, target, "exhausted", fe, 0)
			return domain.Failure[T](&domain.FetchError{
				Kind:    domain.KindExhausted,
				Message: target + ": retry delay exceeds deadline: " + last.Error(),
				Status:  last.Status,
				Err:     last,
			})
		}
		e.logAttempt(attempt, target, "retry", fe, delay)
		if err := e.sleep(ctx, delay); err != nil {
			cerr := domain.ContextError(ctx)
			if cerr == nil {
				cerr = domain.WrapError(domain.KindCancelled, err)
			}
			e.logAttempt(attempt, target, string(cerr.Kind), cerr, 0)
			return contextOutcome[T](cerr)
		}
	}
}

func contextOutcome[T any](fe *domain.FetchError) domain.Outcome[T] {
	if fe.Kind == domain.KindCancelled {
		return domain.Cancelled[T](fe)
	}
	return domain.Failure[T](fe)
}

func (e *Engine) logAttempt(attempt int, target, outcome string, err *domain.FetchError, next time.Duration) {
	fields := []zap.Field{
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", e.policy.MaxAttempts),
		zap.String("target", target),
		zap.String("outcome", outcome),
	}
	if err != nil {
		fields = append(fields, zap.String("kind", string(err.Kind)), zap.String("error", err.Message))
		if err.Status > 0 {
			fields = append(fields, zap.Int("status", err.Status))
		}
	}
	if next > 0 {
		fields = append(fields, zap.Duration("next_delay", next))
	}
	if err == nil {
		e.logger.Info("upstream attempt", fields...)
		return
	}
	e.logger.Warn("upstream attempt", fields...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
