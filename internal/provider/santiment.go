package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"cryptopulse/internal/domain"
	"cryptopulse/internal/upstream"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	santimentEndpoint = "graphql"
	santimentMetric   = "sentiment_weighted_total_1d"
)

const santimentQuery = `{
  getMetric(metric: %q) {
    timeseriesData(slug: %q, from: "utc_now-1d", to: "utc_now", interval: "1d") {
      datetime
      value
    }
  }
}`

// SantimentAdapter fetches the latest social-sentiment point for a coin.
type SantimentAdapter struct {
	transport upstream.Transport
	tracer    trace.Tracer
	clock     Clock
}

func NewSantimentAdapter(transport upstream.Transport, tracer trace.Tracer, clock Clock) *SantimentAdapter {
	return &SantimentAdapter{transport: transport, tracer: tracer, clock: clock}
}

// BuildRequest builds the GraphQL timeseries query for slug.
func (a *SantimentAdapter) BuildRequest(slug string) (upstream.Request, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return upstream.Request{}, domain.NewError(domain.KindInvalidRequest, "santiment slug is required")
	}
	body, err := json.Marshal(map[string]string{"query": fmt.Sprintf(santimentQuery, santimentMetric, slug)})
	if err != nil {
		return upstream.Request{}, domain.WrapError(domain.KindInvalidRequest, err)
	}
	return upstream.Request{
		Upstream: upstream.Santiment,
		Method:   http.MethodPost,
		Endpoint: santimentEndpoint,
		Body:     body,
	}, nil
}

type santimentPayload struct {
	Data *struct {
		GetMetric *struct {
			TimeseriesData []struct {
				Datetime string   `json:"datetime"`
				Value    *float64 `json:"value"`
			} `json:"timeseriesData"`
		} `json:"getMetric"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ParseResponse converts a GraphQL reply into a reading for coin. The most
// recent point wins; a series without usable points is insufficient data.
func (a *SantimentAdapter) ParseResponse(coin string, body []byte) (domain.SentimentReading, error) {
	var payload santimentPayload
	if err := upstream.DecodeJSON(body, &payload); err != nil {
		return domain.SentimentReading{}, err
	}
	if len(payload.Errors) > 0 {
		msgs := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			msgs = append(msgs, e.Message)
		}
		return domain.SentimentReading{}, domain.NewError(domain.KindInvalidRequest, "santiment: %s", strings.Join(msgs, "; "))
	}
	if payload.Data == nil || payload.Data.GetMetric == nil {
		return domain.SentimentReading{}, domain.NewError(domain.KindInvalidResponseFormat, "santiment: missing data.getMetric")
	}

	type point struct {
		at    time.Time
		value float64
	}
	points := make([]point, 0, len(payload.Data.GetMetric.TimeseriesData))
	for _, row := range payload.Data.GetMetric.TimeseriesData {
		if row.Value == nil {
			continue
		}
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(row.Datetime))
		if err != nil {
			continue
		}
		points = append(points, point{at: at.UTC(), value: *row.Value})
	}
	if len(points) == 0 {
		return domain.SentimentReading{}, domain.NewError(domain.KindInsufficientData, "santiment: no sentiment points for %s", coin)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].at.Before(points[j].at) })
	latest := points[len(points)-1]
	return readingFromScore(coin, domain.CompoundToScore(latest.value), latest.at), nil
}

// Fetch performs one sentiment call. It does not retry.
func (a *SantimentAdapter) Fetch(ctx context.Context, coin, slug string) (domain.SentimentReading, error) {
	ctx, span := a.tracer.Start(ctx, "santiment.fetch-sentiment")
	defer span.End()
	span.SetAttributes(attribute.String("coin", coin), attribute.String("slug", slug))

	req, err := a.BuildRequest(slug)
	if err != nil {
		return domain.SentimentReading{}, err
	}
	resp, err := a.transport.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		return domain.SentimentReading{}, err
	}
	if err := upstream.CheckStatus(resp); err != nil {
		span.RecordError(err)
		return domain.SentimentReading{}, err
	}
	return a.ParseResponse(coin, resp.Body)
}
