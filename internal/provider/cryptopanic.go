package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryptopulse/internal/domain"
	"cryptopulse/internal/upstream"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	cryptoPanicEndpoint = "api/v1/posts/"
	noTitle             = "No title available"
	defaultEventKind    = "news"
)

// TickerResolver maps an events-provider currency code to a tracked ticker.
type TickerResolver interface {
	TickerForEventCode(code string) (string, bool)
}

// CryptoPanicAdapter fetches hot news posts for a fixed set of coins.
type CryptoPanicAdapter struct {
	transport upstream.Transport
	tracer    trace.Tracer
	clock     Clock
	resolver  TickerResolver
}

func NewCryptoPanicAdapter(transport upstream.Transport, tracer trace.Tracer, clock Clock, resolver TickerResolver) *CryptoPanicAdapter {
	return &CryptoPanicAdapter{transport: transport, tracer: tracer, clock: clock, resolver: resolver}
}

// BuildRequest asks for hot posts mentioning any of codes.
func (a *CryptoPanicAdapter) BuildRequest(codes []string) (upstream.Request, error) {
	clean := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			clean = append(clean, c)
		}
	}
	if len(clean) == 0 {
		return upstream.Request{}, domain.NewError(domain.KindInvalidRequest, "at least one currency code is required")
	}
	q := url.Values{}
	q.Set("currencies", strings.Join(clean, ","))
	q.Set("filter", "hot")
	q.Set("public", "true")
	return upstream.Request{
		Upstream: upstream.CryptoPanic,
		Endpoint: cryptoPanicEndpoint,
		Query:    q,
	}, nil
}

type cryptoPanicPost struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	PublishedAt string          `json:"published_at"`
	Kind        string          `json:"kind"`
	Currencies  []struct {
		Code string `json:"code"`
	} `json:"currencies"`
}

// ParseResponse maps every row to a MarketEvent. A malformed row is kept
// with placeholders rather than failing the batch.
func (a *CryptoPanicAdapter) ParseResponse(body []byte) ([]domain.MarketEvent, error) {
	var payload struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := upstream.DecodeJSON(body, &payload); err != nil {
		return nil, err
	}

	now := a.clock.now()
	seen := make(map[string]struct{}, len(payload.Results))
	events := make([]domain.MarketEvent, 0, len(payload.Results))
	for i, raw := range payload.Results {
		var post cryptoPanicPost
		if err := json.Unmarshal(raw, &post); err != nil {
			post = cryptoPanicPost{}
		}

		title := sanitizeText(htmlStrip(post.Title), 300)
		if title == "" {
			title = noTitle
		}
		publishedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(post.PublishedAt))
		if err != nil {
			publishedAt = now
		}
		kind := strings.ToLower(strings.TrimSpace(post.Kind))
		if kind == "" {
			kind = defaultEventKind
		}

		events = append(events, domain.MarketEvent{
			ID:          uniqueID(seen, eventID(post.ID, now, i)),
			Coin:        a.resolveCoin(post, title),
			PublishedAt: publishedAt.UTC(),
			Title:       title,
			Description: sanitizeText(htmlStrip(post.Description), 420),
			EventKind:   kind,
		})
	}
	return events, nil
}

func (a *CryptoPanicAdapter) resolveCoin(post cryptoPanicPost, title string) string {
	if a.resolver != nil {
		for _, c := range post.Currencies {
			if ticker, ok := a.resolver.TickerForEventCode(c.Code); ok {
				return ticker
			}
		}
	}
	if tickers := TickersInText(title + " " + post.Description); len(tickers) > 0 {
		return tickers[0]
	}
	return domain.UnknownCoin
}

// eventID prefers the provider id (number or string) and otherwise derives
// one from the clock and row position.
func eventID(raw json.RawMessage, now time.Time, index int) string {
	if len(raw) > 0 && string(raw) != "null" {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n.String() != "" {
			return "cp-" + n.String()
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return "cp-" + strings.TrimSpace(s)
		}
	}
	return "evt-" + strconv.FormatInt(now.UnixNano(), 36) + "-" + strconv.Itoa(index)
}

func uniqueID(seen map[string]struct{}, id string) string {
	candidate := id
	for n := 2; ; n++ {
		if _, dup := seen[candidate]; !dup {
			seen[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
}

// Fetch performs one events call. It does not retry.
func (a *CryptoPanicAdapter) Fetch(ctx context.Context, codes []string) ([]domain.MarketEvent, error) {
	ctx, span := a.tracer.Start(ctx, "cryptopanic.fetch-events")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("currencies", codes))

	req, err := a.BuildRequest(codes)
	if err != nil {
		return nil, err
	}
	resp, err := a.transport.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := upstream.CheckStatus(resp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	events, err := a.ParseResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("events", len(events)))
	return events, nil
}
