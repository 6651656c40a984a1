// Package scheduler keeps a table of subscription keys and the time each is
// next due. An external clock advances it through Tick.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is the work run when a key comes due.
type Job func(ctx context.Context)

type entry struct {
	every   time.Duration
	next    time.Time
	run     Job
	running bool
}

// Scheduler is safe for concurrent use. Each key runs at most one job at a
// time; a key that is still running when it comes due again is skipped.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  *zap.Logger
	wg      sync.WaitGroup

	stopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{entries: make(map[string]*entry), logger: logger}
}

// Subscribe registers run under key, first due at first and then every
// interval. Re-subscribing a key replaces its schedule.
func (s *Scheduler) Subscribe(key string, every time.Duration, first time.Time, run Job) {
	if every <= 0 {
		every = time.Minute
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[key]; ok && prev.running {
		s.entries[key] = &entry{every: every, next: first, run: run, running: true}
		return
	}
	s.entries[key] = &entry{every: every, next: first, run: run}
}

// Unsubscribe removes key. A job already running finishes normally.
func (s *Scheduler) Unsubscribe(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// NextDue returns when key is next due.
func (s *Scheduler) NextDue(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.next, true
}

// Keys lists the registered keys, sorted.
func (s *Scheduler) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Tick starts every job whose due time is not after now and advances its
// next due time by whole intervals past now. It returns the keys started.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	var started []string
	for key, e := range s.entries {
		if e.next.After(now) {
			continue
		}
		for !e.next.After(now) {
			e.next = e.next.Add(e.every)
		}
		if e.running {
			s.logger.Debug("scheduler skip: still running", zap.String("key", key))
			continue
		}
		e.running = true
		started = append(started, key)

		s.wg.Add(1)
		go s.run(ctx, key, e)
	}
	s.mu.Unlock()

	sort.Strings(started)
	return started
}

func (s *Scheduler) run(ctx context.Context, key string, e *entry) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok {
			cur.running = false
		}
		e.running = false
		s.mu.Unlock()
	}()
	e.run(ctx)
}

// Wait blocks until every started job has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Start ticks immediately and then every poll interval until Stop is called
// or ctx is done. It does not block.
func (s *Scheduler) Start(ctx context.Context, poll time.Duration) {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	s.stopMu.Lock()
	if s.cancel != nil {
		s.stopMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.stopMu.Unlock()

	go func() {
		defer close(done)
		s.Tick(ctx, time.Now())
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Tick(ctx, now)
			}
		}
	}()
	s.logger.Info("scheduler started", zap.Duration("poll", poll), zap.Int("keys", len(s.Keys())))
}

// Stop halts ticking, cancels running jobs and waits for them.
func (s *Scheduler) Stop() {
	s.stopMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.stopMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}
