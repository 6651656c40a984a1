package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func stubRedis(t *testing.T, ping error) *string {
	t.Helper()
	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
	})

	var capturedAddr string
	newRedisClient = func(opts *redis.Options) *redis.Client {
		capturedAddr = opts.Addr
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return ping
	}
	return &capturedAddr
}

func TestConnectWithCustomAddr(t *testing.T) {
	addr := stubRedis(t, nil)
	client, err := Connect(context.Background(), "redis:9999")
	if err != nil || client == nil {
		t.Fatalf("unexpected result: %v %v", client, err)
	}
	if *addr != "redis:9999" {
		t.Fatalf("expected custom addr, got %s", *addr)
	}
}

func TestConnectParsesURL(t *testing.T) {
	addr := stubRedis(t, nil)
	if _, err := Connect(context.Background(), "redis://cache.internal:6380/2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *addr != "cache.internal:6380" {
		t.Fatalf("expected parsed addr, got %s", *addr)
	}
}

func TestConnectDisabledAndFailures(t *testing.T) {
	stubRedis(t, errors.New("refused"))
	if client, err := Connect(context.Background(), ""); client != nil || err != nil {
		t.Fatalf("empty addr must disable redis, got %v %v", client, err)
	}
	if _, err := Connect(context.Background(), "localhost:6379"); err == nil {
		t.Fatal("expected ping failure to be returned")
	}
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[key]++
	return m.counts[key], nil
}

func TestWindowLimiter(t *testing.T) {
	counter := &memCounter{}
	l := NewWindowLimiter(counter, 2, time.Minute)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _, _ := l.Allow(context.Background(), "1.2.3.4"); !ok {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if ok, remaining, _ := l.Allow(context.Background(), "1.2.3.4"); ok || remaining != 0 {
		t.Fatalf("third call should be limited, got ok=%v remaining=%d", ok, remaining)
	}
	if ok, _, _ := l.Allow(context.Background(), "5.6.7.8"); !ok {
		t.Fatal("other clients have their own window")
	}
	now = now.Add(time.Minute)
	if ok, _, _ := l.Allow(context.Background(), "1.2.3.4"); !ok {
		t.Fatal("next window should reset the count")
	}
}

func TestWindowLimiterFailsOpen(t *testing.T) {
	l := NewWindowLimiter(&memCounter{err: errors.New("redis down")}, 1, time.Minute)
	ok, _, err := l.Allow(context.Background(), "client")
	if !ok || err == nil {
		t.Fatalf("expected fail-open with error, got ok=%v err=%v", ok, err)
	}
	var nilLimiter *WindowLimiter
	if ok, _, _ := nilLimiter.Allow(context.Background(), "client"); !ok {
		t.Fatal("nil limiter must allow")
	}
}
