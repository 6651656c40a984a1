package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestGrowthPct(t *testing.T) {
	if got := GrowthPct(1000, 1100); math.Abs(got-10.0) > 1e-9 {
		t.Fatalf("expected 10.0, got %f", got)
	}
	if got := GrowthPct(0, 5000); got != 0 {
		t.Fatalf("zero previous should give 0, got %f", got)
	}
	if got := GrowthPct(200, 100); got != -50 {
		t.Fatalf("expected -50, got %f", got)
	}
}

func TestCompoundToScore(t *testing.T) {
	tests := map[float64]float64{-1: 0, 0: 50, 1: 100, 0.5: 75, 3: 100, -7: 0}
	for in, want := range tests {
		if got := CompoundToScore(in); got != want {
			t.Fatalf("CompoundToScore(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(context.Canceled) != KindCancelled {
		t.Fatal("context.Canceled should classify as cancelled")
	}
	if KindOf(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)) != KindTimeout {
		t.Fatal("deadline should classify as timeout")
	}
	if KindOf(errors.New("connection reset by peer")) != KindNetwork {
		t.Fatal("unknown errors should classify as network")
	}
	wrapped := fmt.Errorf("outer: %w", NewError(KindUnauthorized, "bad key"))
	if KindOf(wrapped) != KindUnauthorized {
		t.Fatal("wrapped FetchError kind should survive")
	}
}

func TestErrorKindRetryable(t *testing.T) {
	for _, k := range []ErrorKind{KindNetwork, KindRateLimited, KindUpstreamStatus} {
		if !k.Retryable() {
			t.Fatalf("%s should be retryable", k)
		}
	}
	for _, k := range []ErrorKind{KindUnauthorized, KindPaymentRequired, KindInvalidRequest, KindInvalidResponseFormat, KindInsufficientData, KindMissingCredential} {
		if k.Retryable() {
			t.Fatalf("%s should be terminal", k)
		}
	}
}

func TestOutcomeFromError(t *testing.T) {
	out := FromError[int](context.Canceled)
	if out.Status != StatusCancelled || out.Kind() != KindCancelled {
		t.Fatalf("unexpected cancelled outcome: %+v", out)
	}
	out = FromError[int](NewError(KindTimeout, "deadline"))
	if out.Status != StatusFailure || out.Kind() != KindTimeout {
		t.Fatalf("timeout should be a failure: %+v", out)
	}
	ok := Success(7, SourceFallbackStatic)
	if !ok.OK() || !ok.Degraded() || ok.Error() != nil {
		t.Fatalf("unexpected success outcome: %+v", ok)
	}
	if Success(7, SourceLive).Degraded() {
		t.Fatal("live outcome should not be degraded")
	}
}

func TestOnChainSnapshotIsZero(t *testing.T) {
	if !(OnChainSnapshot{Coin: "BTC"}).IsZero() {
		t.Fatal("empty snapshot should be zero")
	}
	if (OnChainSnapshot{ActiveWalletsGrowthPct: -1}).IsZero() {
		t.Fatal("growth alone makes a snapshot non-zero")
	}
}
