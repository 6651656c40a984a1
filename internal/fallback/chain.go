// Package fallback runs ordered data sources until one produces a value.
package fallback

import (
	"context"

	"cryptopulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Source is one tier of a chain. Fetch usually wraps a retried upstream call.
type Source[T any] struct {
	Name  string
	Tier  domain.Source
	Fetch func(ctx context.Context) domain.Outcome[T]
}

// Terminal is the last tier. It is a pure computation and cannot fail.
type Terminal[T any] struct {
	Name  string
	Tier  domain.Source
	Value func() T
}

// Chain tries its sources strictly in order. It is immutable once built and
// may be shared between goroutines.
type Chain[T any] struct {
	name     string
	sources  []Source[T]
	terminal Terminal[T]
	logger   *zap.Logger
	tracer   trace.Tracer
}

func New[T any](name string, logger *zap.Logger, tracer trace.Tracer, terminal Terminal[T], sources ...Source[T]) *Chain[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if terminal.Tier == "" {
		terminal.Tier = domain.SourceNeutralDefault
	}
	return &Chain[T]{
		name:     name,
		sources:  append([]Source[T](nil), sources...),
		terminal: terminal,
		logger:   logger,
		tracer:   tracer,
	}
}

// Len returns the number of fallible sources.
func (c *Chain[T]) Len() int { return len(c.sources) }

// Run returns the first successful tier, tagged with that tier's Source.
// Caller cancellation and deadline expiry stop the chain; precondition
// failures (missing credential, unsupported coin) propagate unchanged.
func (c *Chain[T]) Run(ctx context.Context) domain.Outcome[T] {
	ctx, span := c.tracer.Start(ctx, "fallback.run")
	defer span.End()
	span.SetAttributes(attribute.String("chain", c.name))

	for i, src := range c.sources {
		if cerr := domain.ContextError(ctx); cerr != nil {
			return c.stop(span, src.Name, cerr)
		}

		out := src.Fetch(ctx)
		if out.OK() {
			out.Source = src.Tier
			span.SetAttributes(attribute.String("source", string(src.Tier)), attribute.String("tier", src.Name))
			if i > 0 {
				c.logger.Info("fallback tier served", zap.String("chain", c.name), zap.String("tier", src.Name), zap.String("source", string(src.Tier)))
			}
			return out
		}

		fe := out.Err
		if fe == nil {
			fe = domain.NewError(domain.KindExhausted, "%s returned no value", src.Name)
		}
		switch fe.Kind {
		case domain.KindCancelled, domain.KindTimeout:
			return c.stop(span, src.Name, fe)
		case domain.KindMissingCredential, domain.KindUnsupportedCoin:
			c.logger.Warn("fallback precondition failed", zap.String("chain", c.name), zap.String("tier", src.Name), zap.String("kind", string(fe.Kind)), zap.String("error", fe.Message))
			span.RecordError(fe)
			return domain.Failure[T](fe)
		}
		c.logger.Warn("fallback tier failed",
			zap.String("chain", c.name),
			zap.String("tier", src.Name),
			zap.String("kind", string(fe.Kind)),
			zap.String("error", fe.Message),
			zap.Int("remaining", len(c.sources)-i-1),
		)
	}

	if cerr := domain.ContextError(ctx); cerr != nil {
		return c.stop(span, c.terminal.Name, cerr)
	}
	c.logger.Info("fallback terminal served", zap.String("chain", c.name), zap.String("tier", c.terminal.Name), zap.String("source", string(c.terminal.Tier)))
	span.SetAttributes(attribute.String("source", string(c.terminal.Tier)), attribute.String("tier", c.terminal.Name))
	return domain.Success(c.terminal.Value(), c.terminal.Tier)
}

func (c *Chain[T]) stop(span trace.Span, tier string, fe *domain.FetchError) domain.Outcome[T] {
	c.logger.Warn("fallback chain stopped", zap.String("chain", c.name), zap.String("tier", tier), zap.String("kind", string(fe.Kind)))
	span.RecordError(fe)
	if fe.Kind == domain.KindCancelled {
		return domain.Cancelled[T](fe)
	}
	return domain.Failure[T](fe)
}
