package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch did not produce data.
type ErrorKind string

const (
	KindNetwork               ErrorKind = "network"
	KindRateLimited           ErrorKind = "rate_limited"
	KindUnauthorized          ErrorKind = "unauthorized"
	KindPaymentRequired       ErrorKind = "payment_required"
	KindInvalidRequest        ErrorKind = "invalid_request"
	KindInvalidResponseFormat ErrorKind = "invalid_response_format"
	KindInsufficientData      ErrorKind = "insufficient_data"
	KindMissingCredential     ErrorKind = "missing_credential"
	KindUnsupportedCoin       ErrorKind = "unsupported_coin"
	KindUpstreamStatus        ErrorKind = "upstream_status"
	KindExhausted             ErrorKind = "exhausted"
	KindCancelled             ErrorKind = "cancelled"
	KindTimeout               ErrorKind = "timeout"
)

// Retryable reports whether a failure of this kind may succeed on a later attempt.
// Generic upstream statuses are retried until the attempt budget runs out.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNetwork, KindRateLimited, KindUpstreamStatus:
		return true
	default:
		return false
	}
}

// FetchError is the typed failure carried by outcomes and returned by adapters.
type FetchError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Status  int       `json:"status,omitempty"`
	Err     error     `json:"-"`
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewError builds a FetchError with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *FetchError {
	return &FetchError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a FetchError around cause.
func WrapError(kind ErrorKind, cause error) *FetchError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &FetchError{Kind: kind, Message: msg, Err: cause}
}

// KindOf extracts the ErrorKind of err. Context errors map to cancelled/timeout,
// anything unclassified is treated as a network-layer failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindNetwork
}

// AsFetchError converts any error into a *FetchError, classifying it with KindOf.
func AsFetchError(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return WrapError(KindOf(err), err)
}

// ContextError classifies a finished context: deadline expiry is a timeout,
// anything else is a caller cancellation.
func ContextError(ctx context.Context) *FetchError {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(KindTimeout, err)
	}
	return WrapError(KindCancelled, err)
}
