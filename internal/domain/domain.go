package domain

import (
	"math"
	"time"
)

// DataKind names one family of dashboard data.
type DataKind string

const (
	DataSentiment DataKind = "sentiment"
	DataOnChain   DataKind = "onchain"
	DataEvents    DataKind = "events"
)

// UnknownCoin tags events that cannot be resolved to a tracked ticker.
const UnknownCoin = "UNKNOWN"

// SentimentReading is a normalized social-sentiment observation for one coin.
// Shares are percentages and always sum to 100 (within rounding).
type SentimentReading struct {
	Coin          string    `json:"coin"`
	PositiveShare float64   `json:"positive_share"`
	NegativeShare float64   `json:"negative_share"`
	NeutralShare  float64   `json:"neutral_share"`
	Score         float64   `json:"score"`
	ObservedAt    time.Time `json:"observed_at"`
}

// ShareTotal returns the sum of the three shares.
func (r SentimentReading) ShareTotal() float64 {
	return r.PositiveShare + r.NegativeShare + r.NeutralShare
}

// OnChainSnapshot is a normalized daily on-chain activity observation.
type OnChainSnapshot struct {
	Coin                   string    `json:"coin"`
	ActiveWallets          int64     `json:"active_wallets"`
	ActiveWalletsGrowthPct float64   `json:"active_wallets_growth_pct"`
	LargeTransactionCount  int64     `json:"large_transaction_count"`
	ObservedAt             time.Time `json:"observed_at"`
}

// IsZero reports whether every metric is zero.
func (s OnChainSnapshot) IsZero() bool {
	return s.ActiveWallets == 0 && s.ActiveWalletsGrowthPct == 0 && s.LargeTransactionCount == 0
}

// MarketEvent is one news/event row.
type MarketEvent struct {
	ID          string    `json:"id"`
	Coin        string    `json:"coin"`
	PublishedAt time.Time `json:"published_at"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventKind   string    `json:"event_kind"`
}

// CoinIdentity maps a stable ticker to the identifier each upstream uses.
type CoinIdentity struct {
	Ticker        string `json:"ticker" yaml:"ticker"`
	Name          string `json:"name" yaml:"name"`
	SentimentSlug string `json:"sentiment_slug" yaml:"sentiment_slug"`
	MetricsSlug   string `json:"metrics_slug" yaml:"metrics_slug"`
	EventsCode    string `json:"events_code" yaml:"events_code"`
}

// GrowthPct returns the percentage change between two consecutive daily
// observations. A zero previous value yields 0.
func GrowthPct(previous, current float64) float64 {
	if previous == 0 || math.IsNaN(previous) || math.IsNaN(current) {
		return 0
	}
	return (current - previous) / previous * 100
}

// CompoundToScore rescales a [-1,1] compound sentiment value to [0,100].
func CompoundToScore(v float64) float64 {
	if math.IsNaN(v) {
		return 50
	}
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return (v + 1) * 50
}
