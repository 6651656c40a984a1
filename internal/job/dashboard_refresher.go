package job

import (
	"context"
	"time"

	"cryptopulse/internal/dashboard"
	"cryptopulse/internal/domain"
	"cryptopulse/internal/scheduler"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DataFetcher is the slice of the gateway the refresher needs.
type DataFetcher interface {
	GetSentiment(ctx context.Context, ticker string) domain.Outcome[domain.SentimentReading]
	GetOnChain(ctx context.Context, ticker string) domain.Outcome[domain.OnChainSnapshot]
	GetEvents(ctx context.Context) domain.Outcome[[]domain.MarketEvent]
}

// Intervals sets how often each panel is refreshed.
type Intervals struct {
	Events    time.Duration
	Sentiment time.Duration
	OnChain   time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Events:    10 * time.Minute,
		Sentiment: 15 * time.Minute,
		OnChain:   30 * time.Minute,
	}
}

// Events go first so the AI sentiment tier has headlines to work from; the
// other panels are staggered to spread upstream calls.
const (
	sentimentStagger = 10 * time.Second
	onChainStagger   = 30 * time.Second
)

// DashboardRefresher keeps a dashboard.Board current by registering one
// scheduler key per panel.
type DashboardRefresher struct {
	tracer    trace.Tracer
	fetcher   DataFetcher
	board     *dashboard.Board
	coins     []string
	intervals Intervals
	logger    *zap.Logger
}

func NewDashboardRefresher(tracer trace.Tracer, fetcher DataFetcher, board *dashboard.Board, coins []string, intervals Intervals, logger *zap.Logger) *DashboardRefresher {
	def := DefaultIntervals()
	if intervals.Events <= 0 {
		intervals.Events = def.Events
	}
	if intervals.Sentiment <= 0 {
		intervals.Sentiment = def.Sentiment
	}
	if intervals.OnChain <= 0 {
		intervals.OnChain = def.OnChain
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardRefresher{
		tracer:    tracer,
		fetcher:   fetcher,
		board:     board,
		coins:     append([]string(nil), coins...),
		intervals: intervals,
		logger:    logger,
	}
}

// Register subscribes every panel on s, first due relative to now.
func (r *DashboardRefresher) Register(s *scheduler.Scheduler, now time.Time) {
	s.Subscribe("events", r.intervals.Events, now, r.refreshEvents)
	for _, coin := range r.coins {
		s.Subscribe("sentiment:"+coin, r.intervals.Sentiment, now.Add(sentimentStagger), func(ctx context.Context) {
			r.refreshSentiment(ctx, coin)
		})
		s.Subscribe("onchain:"+coin, r.intervals.OnChain, now.Add(onChainStagger), func(ctx context.Context) {
			r.refreshOnChain(ctx, coin)
		})
	}
}

// RefreshAll refreshes every panel once, sequentially. Used at startup and
// by on-demand refreshes.
func (r *DashboardRefresher) RefreshAll(ctx context.Context) {
	r.refreshEvents(ctx)
	for _, coin := range r.coins {
		r.refreshSentiment(ctx, coin)
		r.refreshOnChain(ctx, coin)
	}
}

func (r *DashboardRefresher) refreshEvents(ctx context.Context) {
	ctx, span := r.tracer.Start(ctx, "dashboard-refresher.events")
	defer span.End()

	out := r.fetcher.GetEvents(ctx)
	r.board.SetEvents(out)
	span.SetAttributes(attribute.String("status", string(out.Status)), attribute.Int("events", len(out.Value)))
	r.logOutcome("events", "", out.Status, out.Source, out.Err)
}

func (r *DashboardRefresher) refreshSentiment(ctx context.Context, coin string) {
	ctx, span := r.tracer.Start(ctx, "dashboard-refresher.sentiment")
	defer span.End()
	span.SetAttributes(attribute.String("coin", coin))

	out := r.fetcher.GetSentiment(ctx, coin)
	r.board.SetSentiment(coin, out)
	r.logOutcome("sentiment", coin, out.Status, out.Source, out.Err)
}

func (r *DashboardRefresher) refreshOnChain(ctx context.Context, coin string) {
	ctx, span := r.tracer.Start(ctx, "dashboard-refresher.onchain")
	defer span.End()
	span.SetAttributes(attribute.String("coin", coin))

	out := r.fetcher.GetOnChain(ctx, coin)
	r.board.SetOnChain(coin, out)
	r.logOutcome("onchain", coin, out.Status, out.Source, out.Err)
}

func (r *DashboardRefresher) logOutcome(panel, coin string, status domain.Status, source domain.Source, err *domain.FetchError) {
	fields := []zap.Field{zap.String("panel", panel), zap.String("status", string(status))}
	if coin != "" {
		fields = append(fields, zap.String("coin", coin))
	}
	if err != nil {
		r.logger.Warn("dashboard refresh failed", append(fields, zap.String("kind", string(err.Kind)), zap.String("error", err.Message))...)
		return
	}
	if source != domain.SourceLive {
		r.logger.Info("dashboard refresh degraded", append(fields, zap.String("source", string(source)))...)
	}
}
