package gateway

import (
	"context"
	"sync"
)

// inflight tracks the pending request per key. Starting a request for a key
// cancels the one already pending under that key.
type inflight struct {
	mu      sync.Mutex
	seq     uint64
	pending map[string]pendingCall
}

type pendingCall struct {
	id     uint64
	cancel context.CancelFunc
}

func newInflight() *inflight {
	return &inflight{pending: make(map[string]pendingCall)}
}

// begin registers a new call under key and returns its context plus a
// release func that must be called when the call finishes.
func (f *inflight) begin(ctx context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	if prev, ok := f.pending[key]; ok {
		prev.cancel()
	}
	f.seq++
	id := f.seq
	f.pending[key] = pendingCall{id: id, cancel: cancel}
	f.mu.Unlock()

	return ctx, func() {
		f.mu.Lock()
		if cur, ok := f.pending[key]; ok && cur.id == id {
			delete(f.pending, key)
		}
		f.mu.Unlock()
		cancel()
	}
}

// size returns how many keys currently have a call in flight.
func (f *inflight) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}
