package provider

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"cryptopulse/internal/domain"
	"cryptopulse/internal/upstream"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	coinMetricsEndpoint = "v4/timeseries/asset-metrics"
	activeAddressMetric = "AdrActCnt"
	txCountMetric       = "TxCnt"
	coinMetricsWindow   = 7 * 24 * time.Hour
)

// CoinMetricsAdapter fetches the two most recent daily on-chain points.
type CoinMetricsAdapter struct {
	transport upstream.Transport
	tracer    trace.Tracer
	clock     Clock
}

func NewCoinMetricsAdapter(transport upstream.Transport, tracer trace.Tracer, clock Clock) *CoinMetricsAdapter {
	return &CoinMetricsAdapter{transport: transport, tracer: tracer, clock: clock}
}

// BuildRequest asks for daily active addresses and transaction counts over
// the trailing week, newest page first.
func (a *CoinMetricsAdapter) BuildRequest(slug string) (upstream.Request, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return upstream.Request{}, domain.NewError(domain.KindInvalidRequest, "coin metrics asset is required")
	}
	now := a.clock.now()
	q := url.Values{}
	q.Set("assets", slug)
	q.Set("metrics", activeAddressMetric+","+txCountMetric)
	q.Set("frequency", "1d")
	q.Set("start_time", now.Add(-coinMetricsWindow).Format("2006-01-02"))
	q.Set("end_time", now.Format("2006-01-02"))
	q.Set("page_size", "2")
	q.Set("paging_from", "end")
	return upstream.Request{
		Upstream: upstream.CoinMetrics,
		Endpoint: coinMetricsEndpoint,
		Query:    q,
	}, nil
}

type coinMetricsPayload struct {
	Data  []map[string]any `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponse derives a snapshot from the last two points. Fewer points
// cannot produce a growth figure and fail as InsufficientData.
func (a *CoinMetricsAdapter) ParseResponse(coin string, body []byte) (domain.OnChainSnapshot, error) {
	var payload coinMetricsPayload
	if err := upstream.DecodeJSON(body, &payload); err != nil {
		return domain.OnChainSnapshot{}, err
	}
	if payload.Error != nil {
		return domain.OnChainSnapshot{}, domain.NewError(domain.KindInvalidRequest, "coin metrics %s: %s", payload.Error.Type, payload.Error.Message)
	}

	type point struct {
		at      time.Time
		wallets float64
		txs     float64
	}
	points := make([]point, 0, len(payload.Data))
	for _, row := range payload.Data {
		raw, _ := row["time"].(string)
		at, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		points = append(points, point{
			at:      at.UTC(),
			wallets: asFloat(row[activeAddressMetric]),
			txs:     asFloat(row[txCountMetric]),
		})
	}
	if len(points) < 2 {
		return domain.OnChainSnapshot{}, domain.NewError(domain.KindInsufficientData, "coin metrics returned %d point(s) for %s, need 2", len(points), coin)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].at.Before(points[j].at) })
	prev, cur := points[len(points)-2], points[len(points)-1]

	return domain.OnChainSnapshot{
		Coin:                   coin,
		ActiveWallets:          int64(max(cur.wallets, 0)),
		ActiveWalletsGrowthPct: domain.GrowthPct(prev.wallets, cur.wallets),
		LargeTransactionCount:  int64(max(cur.txs, 0)),
		ObservedAt:             cur.at,
	}, nil
}

// Fetch performs one on-chain call. It does not retry.
func (a *CoinMetricsAdapter) Fetch(ctx context.Context, coin, slug string) (domain.OnChainSnapshot, error) {
	ctx, span := a.tracer.Start(ctx, "coinmetrics.fetch-onchain")
	defer span.End()
	span.SetAttributes(attribute.String("coin", coin), attribute.String("asset", slug))

	req, err := a.BuildRequest(slug)
	if err != nil {
		return domain.OnChainSnapshot{}, err
	}
	resp, err := a.transport.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		return domain.OnChainSnapshot{}, err
	}
	if err := upstream.CheckStatus(resp); err != nil {
		span.RecordError(err)
		return domain.OnChainSnapshot{}, err
	}
	return a.ParseResponse(coin, resp.Body)
}
