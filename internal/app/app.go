// Package app wires configuration into the gateway and the dashboard
// refresher shared by the server, SSH and MCP binaries.
package app

import (
	"context"
	"time"

	"cryptopulse/internal/catalog"
	"cryptopulse/internal/config"
	"cryptopulse/internal/dashboard"
	"cryptopulse/internal/gateway"
	"cryptopulse/internal/job"
	"cryptopulse/internal/provider"
	"cryptopulse/internal/retry"
	"cryptopulse/internal/scheduler"
	"cryptopulse/internal/upstream"

	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Stack is everything a binary needs to serve dashboard data.
type Stack struct {
	Registry  *upstream.Registry
	Transport upstream.Transport
	Gateway   *gateway.Client
	Board     *dashboard.Board
	Scheduler *scheduler.Scheduler
	Refresher *job.DashboardRefresher

	pollEvery time.Duration
}

// Registry builds the upstream table from configured credentials and base URLs.
func Registry(cfg *config.Config) *upstream.Registry {
	return upstream.NewRegistry(
		upstream.Credentials{
			Santiment:   cfg.SantimentAPIKey,
			CoinMetrics: cfg.CoinMetricsAPIKey,
			CryptoPanic: cfg.CryptoPanicAuthToken,
			OpenAI:      cfg.OpenAIAPIKey,
		},
		upstream.BaseURLs{
			Santiment:   cfg.SantimentBaseURL,
			CoinMetrics: cfg.CoinMetricsBaseURL,
			CryptoPanic: cfg.CryptoPanicBaseURL,
			FearGreed:   cfg.FearGreedBaseURL,
			OpenAI:      cfg.OpenAIBaseURL,
		},
	)
}

// Transport sends through PROXY_URL when set, otherwise straight to the
// providers with per-upstream rate limits.
func Transport(cfg *config.Config, registry *upstream.Registry, tracer trace.Tracer) upstream.Transport {
	if cfg.ProxyURL != "" {
		return upstream.NewProxyTransport(cfg.ProxyURL, tracer)
	}
	return upstream.NewDirectTransport(registry, upstream.DefaultLimits(), tracer)
}

// RetryPolicy converts the configured attempt count and delays.
func RetryPolicy(cfg *config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.RetryMaxAttempts > 0 {
		p.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialDelaySecs > 0 {
		p.InitialDelay = time.Duration(cfg.RetryInitialDelaySecs) * time.Second
	}
	if cfg.RetryMaxDelaySecs > 0 {
		p.MaxDelay = time.Duration(cfg.RetryMaxDelaySecs) * time.Second
	}
	return p
}

// NewGateway assembles the adapters, the retry engine and the client.
func NewGateway(cfg *config.Config, registry *upstream.Registry, transport upstream.Transport, tracer trace.Tracer, logger *zap.Logger) *gateway.Client {
	cat := catalog.Default()
	clock := provider.Clock(time.Now)

	var estimator *provider.Estimator
	if cfg.OpenAIAPIKey != "" {
		var opts []option.RequestOption
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
		}
		estimator = provider.NewEstimator(provider.NewOpenAIClient(cfg.OpenAIAPIKey, opts...), cfg.OpenAIModel, tracer, clock)
	}

	return gateway.New(gateway.Deps{
		Catalog:   cat,
		Registry:  registry,
		Engine:    retry.NewEngine(RetryPolicy(cfg), logger.Named("retry")),
		Sentiment: provider.NewSantimentAdapter(transport, tracer, clock),
		OnChain:   provider.NewCoinMetricsAdapter(transport, tracer, clock),
		Events:    provider.NewCryptoPanicAdapter(transport, tracer, clock, cat),
		FearGreed: provider.NewFearGreedAdapter(transport, tracer),
		Estimator: estimator,
		Logger:    logger.Named("gateway"),
		Tracer:    tracer,
		Clock:     clock,
	}, gateway.Options{
		Timeout:           time.Duration(cfg.FetchTimeoutSecs) * time.Second,
		EventCoins:        cfg.EventCoins,
		MarketFallback:    cfg.SentimentMarketFallback,
		RemoteCredentials: cfg.ProxyURL != "",
	})
}

// Build returns a ready Stack. Nothing runs until Start.
func Build(cfg *config.Config, tracer trace.Tracer, logger *zap.Logger) *Stack {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := Registry(cfg)
	transport := Transport(cfg, registry, tracer)
	gw := NewGateway(cfg, registry, transport, tracer, logger)

	board := dashboard.NewBoard()
	sched := scheduler.New(logger.Named("scheduler"))
	refresher := job.NewDashboardRefresher(tracer, gw, board, cfg.TrackedCoins, job.DefaultIntervals(), logger.Named("refresher"))

	poll := time.Duration(cfg.RefreshPollSecs) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &Stack{
		Registry:  registry,
		Transport: transport,
		Gateway:   gw,
		Board:     board,
		Scheduler: sched,
		Refresher: refresher,
		pollEvery: poll,
	}
}

// Start registers the refresh jobs and begins polling the scheduler.
func (s *Stack) Start(ctx context.Context) {
	s.Refresher.Register(s.Scheduler, time.Now())
	s.Scheduler.Start(ctx, s.pollEvery)
}

// Stop halts polling and waits for running jobs.
func (s *Stack) Stop() {
	s.Scheduler.Stop()
}
