// Package gateway is the entry point for dashboard data. Each operation
// resolves the coin, checks credentials, then runs a fallback chain under
// one timeout.
package gateway

import (
	"context"
	"strings"
	"sync"
	"time"

	"cryptopulse/internal/catalog"
	"cryptopulse/internal/domain"
	"cryptopulse/internal/fallback"
	"cryptopulse/internal/provider"
	"cryptopulse/internal/retry"
	"cryptopulse/internal/upstream"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout     = 20 * time.Second
	overviewConcurrent = 8
	eventsKey          = "events"

	// MaxOverviewCoins bounds the distinct tickers of one overview request.
	MaxOverviewCoins = 20
)

// Options tunes the client.
type Options struct {
	Timeout        time.Duration
	EventCoins     []string
	MarketFallback bool
	// RemoteCredentials is set when a remote proxy injects provider
	// secrets. Provider calls then go out without a local key.
	RemoteCredentials bool
}

// Deps are the collaborators of a Client. FearGreed and Estimator are
// optional; their tiers are left out of the chains when nil.
type Deps struct {
	Catalog   *catalog.Catalog
	Registry  *upstream.Registry
	Engine    *retry.Engine
	Sentiment *provider.SantimentAdapter
	OnChain   *provider.CoinMetricsAdapter
	Events    *provider.CryptoPanicAdapter
	FearGreed *provider.FearGreedAdapter
	Estimator *provider.Estimator
	Logger    *zap.Logger
	Tracer    trace.Tracer
	Clock     provider.Clock
}

// Client is safe for concurrent use.
type Client struct {
	deps     Deps
	opts     Options
	inflight *inflight
	group    singleflight.Group

	eventsMu   sync.RWMutex
	lastEvents []domain.MarketEvent
}

func New(deps Deps, opts Options) *Client {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if len(opts.EventCoins) == 0 {
		opts.EventCoins = []string{"BTC", "ETH", "SOL"}
	}
	return &Client{deps: deps, opts: opts, inflight: newInflight()}
}

func (c *Client) now() time.Time {
	if c.deps.Clock == nil {
		return time.Now().UTC()
	}
	return c.deps.Clock().UTC()
}

// credentialed reports whether calls to a provider can be authenticated,
// either with a local key or by the remote proxy. OpenAI always needs a
// local key since the SDK talks to it directly.
func (c *Client) credentialed(name string) bool {
	if c.opts.RemoteCredentials && name != upstream.OpenAI {
		return true
	}
	return c.deps.Registry.HasCredential(name)
}

// Catalog exposes the coin table the client resolves tickers against.
func (c *Client) Catalog() *catalog.Catalog { return c.deps.Catalog }

// GetSentiment returns social sentiment for ticker. Coins without a
// sentiment mapping are rejected before any network call.
func (c *Client) GetSentiment(ctx context.Context, ticker string) domain.Outcome[domain.SentimentReading] {
	ticker = normalizeTicker(ticker)
	ctx, span := c.deps.Tracer.Start(ctx, "gateway.get-sentiment")
	defer span.End()
	span.SetAttributes(attribute.String("coin", ticker))

	coin, ok := c.deps.Catalog.Lookup(ticker)
	if !ok || coin.SentimentSlug == "" {
		return domain.Failure[domain.SentimentReading](domain.NewError(domain.KindUnsupportedCoin, "no sentiment mapping for %s", ticker))
	}
	if !c.credentialed(upstream.Santiment) {
		return domain.Failure[domain.SentimentReading](domain.NewError(domain.KindMissingCredential, "SANTIMENT_API_KEY is not configured"))
	}

	ctx, cancel := c.start(ctx, "sentiment:"+ticker)
	defer cancel()

	out := c.sentimentChain(coin).Run(ctx)
	c.logResult("sentiment", ticker, out.Status, out.Source, out.Err)
	return out
}

// GetOnChain returns on-chain activity for ticker. It never fails for an
// unmapped coin: the chain starts at the AI estimate instead.
func (c *Client) GetOnChain(ctx context.Context, ticker string) domain.Outcome[domain.OnChainSnapshot] {
	ticker = normalizeTicker(ticker)
	ctx, span := c.deps.Tracer.Start(ctx, "gateway.get-onchain")
	defer span.End()
	span.SetAttributes(attribute.String("coin", ticker))

	if !c.credentialed(upstream.CoinMetrics) {
		return domain.Failure[domain.OnChainSnapshot](domain.NewError(domain.KindMissingCredential, "COINMETRICS_API_KEY is not configured"))
	}
	coin, ok := c.deps.Catalog.Lookup(ticker)
	if !ok {
		coin = domain.CoinIdentity{Ticker: ticker, Name: ticker}
	}

	ctx, cancel := c.start(ctx, "onchain:"+ticker)
	defer cancel()

	out := c.onChainChain(coin).Run(ctx)
	c.logResult("onchain", ticker, out.Status, out.Source, out.Err)
	return out
}

// GetEvents returns hot news for the configured coin set.
func (c *Client) GetEvents(ctx context.Context) domain.Outcome[[]domain.MarketEvent] {
	ctx, span := c.deps.Tracer.Start(ctx, "gateway.get-events")
	defer span.End()

	if !c.credentialed(upstream.CryptoPanic) {
		return domain.Failure[[]domain.MarketEvent](domain.NewError(domain.KindMissingCredential, "CRYPTOPANIC_AUTH_TOKEN is not configured"))
	}

	ctx, cancel := c.start(ctx, eventsKey)
	defer cancel()

	out := c.eventsChain().Run(ctx)
	c.logResult("events", "", out.Status, out.Source, out.Err)
	return out
}

// start applies per-key supersession and the operation timeout.
func (c *Client) start(ctx context.Context, key string) (context.Context, func()) {
	ctx, release := c.inflight.begin(ctx, key)
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	return ctx, func() {
		cancel()
		release()
	}
}

func (c *Client) sentimentChain(coin domain.CoinIdentity) *fallback.Chain[domain.SentimentReading] {
	ticker := coin.Ticker
	sources := []fallback.Source[domain.SentimentReading]{{
		Name: upstream.Santiment,
		Tier: domain.SourceLive,
		Fetch: func(ctx context.Context) domain.Outcome[domain.SentimentReading] {
			return retry.Execute(ctx, c.deps.Engine, "santiment:"+ticker, func(ctx context.Context) (domain.SentimentReading, error) {
				return c.deps.Sentiment.Fetch(ctx, ticker, coin.SentimentSlug)
			})
		},
	}}
	if c.deps.Estimator != nil && c.deps.Registry.HasCredential(upstream.OpenAI) {
		sources = append(sources, fallback.Source[domain.SentimentReading]{
			Name: "estimator",
			Tier: domain.SourceFallbackAI,
			Fetch: func(ctx context.Context) domain.Outcome[domain.SentimentReading] {
				events := c.eventsForCoin(ctx, ticker)
				if len(events) == 0 {
					return domain.Failure[domain.SentimentReading](domain.NewError(domain.KindInsufficientData, "no recent events for %s", ticker))
				}
				return retry.Execute(ctx, c.deps.Engine, "openai:sentiment:"+ticker, func(ctx context.Context) (domain.SentimentReading, error) {
					return c.deps.Estimator.EstimateSentiment(ctx, ticker, events)
				})
			},
		})
	}
	if c.opts.MarketFallback && c.deps.FearGreed != nil {
		sources = append(sources, fallback.Source[domain.SentimentReading]{
			Name: upstream.FearGreed,
			Tier: domain.SourceFallbackLive,
			Fetch: func(ctx context.Context) domain.Outcome[domain.SentimentReading] {
				return retry.Execute(ctx, c.deps.Engine, "feargreed:"+ticker, func(ctx context.Context) (domain.SentimentReading, error) {
					return c.deps.FearGreed.Fetch(ctx, ticker)
				})
			},
		})
	}
	terminal := fallback.Terminal[domain.SentimentReading]{
		Name:  "neutral",
		Tier:  domain.SourceNeutralDefault,
		Value: func() domain.SentimentReading { return provider.NeutralSentiment(ticker, c.now()) },
	}
	return fallback.New("sentiment:"+ticker, c.deps.Logger, c.deps.Tracer, terminal, sources...)
}

func (c *Client) onChainChain(coin domain.CoinIdentity) *fallback.Chain[domain.OnChainSnapshot] {
	ticker := coin.Ticker
	var sources []fallback.Source[domain.OnChainSnapshot]
	if coin.MetricsSlug != "" {
		sources = append(sources, fallback.Source[domain.OnChainSnapshot]{
			Name: upstream.CoinMetrics,
			Tier: domain.SourceLive,
			Fetch: func(ctx context.Context) domain.Outcome[domain.OnChainSnapshot] {
				return retry.Execute(ctx, c.deps.Engine, "coinmetrics:"+ticker, func(ctx context.Context) (domain.OnChainSnapshot, error) {
					return c.deps.OnChain.Fetch(ctx, ticker, coin.MetricsSlug)
				})
			},
		})
	}
	if c.deps.Estimator != nil && c.deps.Registry.HasCredential(upstream.OpenAI) {
		sources = append(sources, fallback.Source[domain.OnChainSnapshot]{
			Name: "estimator",
			Tier: domain.SourceFallbackAI,
			Fetch: func(ctx context.Context) domain.Outcome[domain.OnChainSnapshot] {
				return retry.Execute(ctx, c.deps.Engine, "openai:onchain:"+ticker, func(ctx context.Context) (domain.OnChainSnapshot, error) {
					return c.deps.Estimator.EstimateOnChain(ctx, ticker, coin.Name)
				})
			},
		})
	}
	sources = append(sources, fallback.Source[domain.OnChainSnapshot]{
		Name: "static",
		Tier: domain.SourceFallbackStatic,
		Fetch: func(context.Context) domain.Outcome[domain.OnChainSnapshot] {
			snap, ok := c.deps.Catalog.StaticOnChain(ticker, c.now())
			if !ok {
				return domain.Failure[domain.OnChainSnapshot](domain.NewError(domain.KindInsufficientData, "no static on-chain row for %s", ticker))
			}
			return domain.Success(snap, domain.SourceFallbackStatic)
		},
	})
	terminal := fallback.Terminal[domain.OnChainSnapshot]{
		Name: "zero",
		Tier: domain.SourceNeutralDefault,
		Value: func() domain.OnChainSnapshot {
			return domain.OnChainSnapshot{Coin: ticker, ObservedAt: c.now()}
		},
	}
	return fallback.New("onchain:"+ticker, c.deps.Logger, c.deps.Tracer, terminal, sources...)
}

func (c *Client) eventsChain() *fallback.Chain[[]domain.MarketEvent] {
	live := fallback.Source[[]domain.MarketEvent]{
		Name: upstream.CryptoPanic,
		Tier: domain.SourceLive,
		Fetch: func(ctx context.Context) domain.Outcome[[]domain.MarketEvent] {
			out := c.fetchEvents(ctx)
			if out.OK() {
				c.storeEvents(out.Value)
			}
			return out
		},
	}
	terminal := fallback.Terminal[[]domain.MarketEvent]{
		Name:  "empty",
		Tier:  domain.SourceNeutralDefault,
		Value: func() []domain.MarketEvent { return []domain.MarketEvent{} },
	}
	return fallback.New(eventsKey, c.deps.Logger, c.deps.Tracer, terminal, live)
}

func (c *Client) fetchEvents(ctx context.Context) domain.Outcome[[]domain.MarketEvent] {
	codes := c.deps.Catalog.EventCodes(c.opts.EventCoins)
	return retry.Execute(ctx, c.deps.Engine, "cryptopanic", func(ctx context.Context) ([]domain.MarketEvent, error) {
		return c.deps.Events.Fetch(ctx, codes)
	})
}

func (c *Client) storeEvents(events []domain.MarketEvent) {
	c.eventsMu.Lock()
	c.lastEvents = append([]domain.MarketEvent(nil), events...)
	c.eventsMu.Unlock()
}

// LastEvents returns a copy of the most recent successful events batch.
func (c *Client) LastEvents() []domain.MarketEvent {
	c.eventsMu.RLock()
	defer c.eventsMu.RUnlock()
	return append([]domain.MarketEvent(nil), c.lastEvents...)
}

// eventsForCoin returns recent events mentioning ticker. When no batch has
// been loaded yet, one live fetch is shared by all concurrent callers.
func (c *Client) eventsForCoin(ctx context.Context, ticker string) []domain.MarketEvent {
	events := c.LastEvents()
	if len(events) == 0 && c.credentialed(upstream.CryptoPanic) {
		ch := c.group.DoChan(eventsKey, func() (any, error) {
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.Timeout)
			defer cancel()
			out := c.fetchEvents(fctx)
			if !out.OK() {
				return nil, out.Err
			}
			c.storeEvents(out.Value)
			return out.Value, nil
		})
		select {
		case <-ctx.Done():
			return nil
		case res := <-ch:
			if res.Err == nil {
				events, _ = res.Val.([]domain.MarketEvent)
			}
		}
	}

	out := make([]domain.MarketEvent, 0, len(events))
	for _, ev := range events {
		if ev.Coin == ticker {
			out = append(out, ev)
		}
	}
	return out
}

// Overview is a full dashboard snapshot.
type Overview struct {
	Sentiment map[string]domain.Outcome[domain.SentimentReading] `json:"sentiment"`
	OnChain   map[string]domain.Outcome[domain.OnChainSnapshot]  `json:"onchain"`
	Events    domain.Outcome[[]domain.MarketEvent]               `json:"events"`
}

// Overview fetches events plus sentiment and on-chain data for every ticker
// concurrently. Individual outcomes carry their own failures.
func (c *Client) Overview(ctx context.Context, tickers []string) Overview {
	ctx, span := c.deps.Tracer.Start(ctx, "gateway.overview")
	defer span.End()

	tickers = dedupeTickers(tickers)
	span.SetAttributes(attribute.StringSlice("coins", tickers))

	res := Overview{
		Sentiment: make(map[string]domain.Outcome[domain.SentimentReading], len(tickers)),
		OnChain:   make(map[string]domain.Outcome[domain.OnChainSnapshot], len(tickers)),
	}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(overviewConcurrent)

	g.Go(func() error {
		out := c.GetEvents(ctx)
		mu.Lock()
		res.Events = out
		mu.Unlock()
		return nil
	})
	for _, ticker := range tickers {
		g.Go(func() error {
			out := c.GetSentiment(ctx, ticker)
			mu.Lock()
			res.Sentiment[ticker] = out
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			out := c.GetOnChain(ctx, ticker)
			mu.Lock()
			res.OnChain[ticker] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (c *Client) logResult(kind, ticker string, status domain.Status, source domain.Source, err *domain.FetchError) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("status", string(status)),
	}
	if ticker != "" {
		fields = append(fields, zap.String("coin", ticker))
	}
	if source != "" {
		fields = append(fields, zap.String("source", string(source)))
	}
	if err != nil {
		fields = append(fields, zap.String("error_kind", string(err.Kind)), zap.String("error", err.Message))
		c.deps.Logger.Warn("gateway fetch finished", fields...)
		return
	}
	c.deps.Logger.Info("gateway fetch finished", fields...)
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// OverviewTickers normalizes and dedupes a requested coin list. More than
// MaxOverviewCoins distinct tickers is an InvalidRequest.
func OverviewTickers(in []string) ([]string, error) {
	tickers := dedupeTickers(in)
	if len(tickers) > MaxOverviewCoins {
		return nil, domain.NewError(domain.KindInvalidRequest, "at most %d coins per overview, got %d", MaxOverviewCoins, len(tickers))
	}
	return tickers, nil
}

func dedupeTickers(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = normalizeTicker(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
