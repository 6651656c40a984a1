package domain

// Status is the top-level tag of an Outcome.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusCancelled Status = "cancelled"
)

// Source tells the caller which tier of a fallback chain produced the value.
type Source string

const (
	SourceLive           Source = "live"
	SourceFallbackLive   Source = "fallback-live"
	SourceFallbackAI     Source = "fallback-ai"
	SourceFallbackStatic Source = "fallback-static"
	SourceNeutralDefault Source = "neutral-default"
)

// Outcome is the result of every public fetch operation. Callers can tell
// authoritative data (Source == SourceLive) from degraded data without
// inspecting the value itself.
type Outcome[T any] struct {
	Status Status      `json:"status"`
	Source Source      `json:"source,omitempty"`
	Value  T           `json:"data"`
	Err    *FetchError `json:"error,omitempty"`
}

func Success[T any](v T, source Source) Outcome[T] {
	return Outcome[T]{Status: StatusSuccess, Source: source, Value: v}
}

func Failure[T any](err *FetchError) Outcome[T] {
	return Outcome[T]{Status: StatusFailure, Err: err}
}

func Cancelled[T any](err *FetchError) Outcome[T] {
	if err == nil {
		err = NewError(KindCancelled, "request cancelled")
	}
	return Outcome[T]{Status: StatusCancelled, Err: err}
}

// FromError maps err onto a failure or, for caller cancellation, a cancelled outcome.
func FromError[T any](err error) Outcome[T] {
	fe := AsFetchError(err)
	if fe == nil {
		fe = NewError(KindExhausted, "no result")
	}
	if fe.Kind == KindCancelled {
		return Cancelled[T](fe)
	}
	return Failure[T](fe)
}

func (o Outcome[T]) OK() bool { return o.Status == StatusSuccess }

// Degraded reports a successful value that came from a fallback tier.
func (o Outcome[T]) Degraded() bool {
	return o.OK() && o.Source != SourceLive
}

// Kind returns the failure kind, or "" on success.
func (o Outcome[T]) Kind() ErrorKind {
	if o.Err == nil {
		return ""
	}
	return o.Err.Kind
}

// Error returns the failure as an error value, or nil on success.
func (o Outcome[T]) Error() error {
	if o.Err == nil {
		return nil
	}
	return o.Err
}
