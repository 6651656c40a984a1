package provider

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryptopulse/internal/domain"
	"cryptopulse/internal/upstream"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const fearGreedEndpoint = "fng/"

// FearGreedPoint is one reading of the market-wide Fear & Greed index.
type FearGreedPoint struct {
	Value            int       `json:"value"`
	Classification   string    `json:"classification"`
	Timestamp        time.Time `json:"timestamp"`
	TimeUntilUpdateS int       `json:"time_until_update_s"`
}

// FearGreedAdapter reads the alternative.me index. It needs no credential
// and serves as a market-wide stand-in for per-coin sentiment.
type FearGreedAdapter struct {
	transport upstream.Transport
	tracer    trace.Tracer
}

func NewFearGreedAdapter(transport upstream.Transport, tracer trace.Tracer) *FearGreedAdapter {
	return &FearGreedAdapter{transport: transport, tracer: tracer}
}

func (a *FearGreedAdapter) BuildRequest() upstream.Request {
	return upstream.Request{
		Upstream: upstream.FearGreed,
		Endpoint: fearGreedEndpoint,
		Query:    url.Values{"limit": {"1"}},
	}
}

// ParseResponse reads the newest row of the index.
func (a *FearGreedAdapter) ParseResponse(body []byte) (*FearGreedPoint, error) {
	var payload struct {
		Data []struct {
			Value            string `json:"value"`
			Classification   string `json:"value_classification"`
			Timestamp        string `json:"timestamp"`
			TimeUntilUpdateS string `json:"time_until_update"`
		} `json:"data"`
	}
	if err := upstream.DecodeJSON(body, &payload); err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, domain.NewError(domain.KindInsufficientData, "fear & greed response has no rows")
	}

	row := payload.Data[0]
	value, err := strconv.Atoi(strings.TrimSpace(row.Value))
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidResponseFormat, "parse fear & greed value %q", row.Value)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(row.Timestamp), 10, 64)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidResponseFormat, "parse fear & greed timestamp %q", row.Timestamp)
	}
	if ts > 1_000_000_000_000 {
		ts = ts / 1000
	}
	updateS := 0
	if n, err := strconv.Atoi(strings.TrimSpace(row.TimeUntilUpdateS)); err == nil && n >= 0 {
		updateS = n
	}

	return &FearGreedPoint{
		Value:            value,
		Classification:   row.Classification,
		Timestamp:        time.Unix(ts, 0).UTC(),
		TimeUntilUpdateS: updateS,
	}, nil
}

func (a *FearGreedAdapter) FetchLatest(ctx context.Context) (*FearGreedPoint, error) {
	ctx, span := a.tracer.Start(ctx, "feargreed.fetch-latest")
	defer span.End()

	resp, err := a.transport.Do(ctx, a.BuildRequest())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := upstream.CheckStatus(resp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return a.ParseResponse(resp.Body)
}

// Fetch maps the market-wide index onto a reading for coin.
func (a *FearGreedAdapter) Fetch(ctx context.Context, coin string) (domain.SentimentReading, error) {
	point, err := a.FetchLatest(ctx)
	if err != nil {
		return domain.SentimentReading{}, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("feargreed.value", point.Value))
	return readingFromScore(coin, float64(point.Value), point.Timestamp), nil
}
