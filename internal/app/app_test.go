package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cryptopulse/internal/config"
	"cryptopulse/internal/domain"
	"cryptopulse/internal/upstream"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		SantimentAPIKey:       "san",
		FetchTimeoutSecs:      20,
		RetryMaxAttempts:      4,
		RetryInitialDelaySecs: 2,
		RetryMaxDelaySecs:     10,
		TrackedCoins:          []string{"BTC", "ETH"},
		EventCoins:            []string{"BTC"},
		RefreshPollSecs:       1,
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	p := RetryPolicy(testConfig())
	if p.MaxAttempts != 4 || p.InitialDelay != 2*time.Second || p.MaxDelay != 10*time.Second {
		t.Fatalf("unexpected policy: %+v", p)
	}

	def := RetryPolicy(&config.Config{})
	if def.MaxAttempts != 3 || def.InitialDelay != time.Minute || def.MaxDelay != 5*time.Minute {
		t.Fatalf("zero config should keep defaults, got %+v", def)
	}
}

func TestRegistryCarriesCredentials(t *testing.T) {
	reg := Registry(testConfig())
	if !reg.HasCredential(upstream.Santiment) {
		t.Fatal("santiment key should be registered")
	}
	if reg.HasCredential(upstream.CryptoPanic) {
		t.Fatal("cryptopanic has no token configured")
	}
}

func TestTransportSelection(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	cfg := testConfig()
	reg := Registry(cfg)

	if _, ok := Transport(cfg, reg, tracer).(*upstream.DirectTransport); !ok {
		t.Fatal("expected direct transport without PROXY_URL")
	}
	cfg.ProxyURL = "http://localhost:9000/api/proxy"
	if _, ok := Transport(cfg, reg, tracer).(*upstream.ProxyTransport); !ok {
		t.Fatal("expected proxy transport with PROXY_URL")
	}
}

func TestBuildAndStop(t *testing.T) {
	stack := Build(testConfig(), trace.NewNoopTracerProvider().Tracer("test"), nil)
	if stack.Gateway == nil || stack.Board == nil || stack.Refresher == nil {
		t.Fatalf("incomplete stack: %+v", stack)
	}
	if stack.Gateway.Catalog() == nil {
		t.Fatal("gateway should carry the default catalog")
	}
	stack.Stop()
}

func TestProxyModeWithoutLocalKeys(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var env upstream.ProxyEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil || env.API != upstream.Santiment {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"getMetric":{"timeseriesData":[{"datetime":"2025-03-10T00:00:00Z","value":0.2}]}}}`))
	}))
	defer srv.Close()

	cfg := &config.Config{ProxyURL: srv.URL, FetchTimeoutSecs: 5}
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	reg := Registry(cfg)
	gw := NewGateway(cfg, reg, Transport(cfg, reg, tracer), tracer, zap.NewNop())

	out := gw.GetSentiment(context.Background(), "BTC")
	if !out.OK() || out.Source != domain.SourceLive {
		t.Fatalf("expected live sentiment through the proxy, got %+v", out)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one proxy call, got %d", hits.Load())
	}
}
