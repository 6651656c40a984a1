// Package provider turns raw upstream payloads into domain values. Adapters
// build transport-neutral requests and parse responses; they never retry.
package provider

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cryptopulse/internal/domain"

	"github.com/shopspring/decimal"
)

// Clock returns the current time. Adapters take one so tests can pin it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case string:
		return parseFloatString(n)
	default:
		return 0
	}
}

func parseFloatString(v string) float64 {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return n
}

var (
	hundred = decimal.NewFromInt(100)
	evenPos = decimal.RequireFromString("33.33")
	evenNeu = decimal.RequireFromString("33.34")
)

// SharesFromScore splits a 0-100 score into positive/negative/neutral shares.
// Above the midpoint the positive share grows, below it the negative share
// does, and neutral takes the remainder so the three always sum to 100.
func SharesFromScore(score float64) (positive, negative, neutral float64) {
	score = clamp(score, 0, 100)
	pos := decimal.NewFromFloat(clamp(2*(score-50), 0, 100)).Round(2)
	neg := decimal.NewFromFloat(clamp(2*(50-score), 0, 100)).Round(2)
	neu := hundred.Sub(pos).Sub(neg)
	return pos.InexactFloat64(), neg.InexactFloat64(), neu.InexactFloat64()
}

// NormalizeShares rescales arbitrary non-negative weights to percentages
// rounded to 2dp. The neutral share absorbs the rounding remainder.
func NormalizeShares(positive, negative, neutral float64) (float64, float64, float64, bool) {
	positive = math.Max(0, positive)
	negative = math.Max(0, negative)
	neutral = math.Max(0, neutral)
	total := positive + negative + neutral
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, 0, 0, false
	}
	t := decimal.NewFromFloat(total)
	pos := decimal.NewFromFloat(positive).Mul(hundred).Div(t).Round(2)
	neg := decimal.NewFromFloat(negative).Mul(hundred).Div(t).Round(2)
	neu := hundred.Sub(pos).Sub(neg)
	return pos.InexactFloat64(), neg.InexactFloat64(), neu.InexactFloat64(), true
}

// ScoreFromShares places a reading on the 0-100 scale: 50 plus half the
// positive/negative spread.
func ScoreFromShares(positive, negative float64) float64 {
	v := decimal.NewFromFloat(clamp(50+(positive-negative)/2, 0, 100)).Round(2)
	return v.InexactFloat64()
}

// NeutralSentiment is the even split used when no sentiment data exists.
func NeutralSentiment(coin string, at time.Time) domain.SentimentReading {
	return domain.SentimentReading{
		Coin:          coin,
		PositiveShare: evenPos.InexactFloat64(),
		NegativeShare: evenPos.InexactFloat64(),
		NeutralShare:  evenNeu.InexactFloat64(),
		Score:         50,
		ObservedAt:    at.UTC(),
	}
}

func readingFromScore(coin string, score float64, at time.Time) domain.SentimentReading {
	pos, neg, neu := SharesFromScore(score)
	return domain.SentimentReading{
		Coin:          coin,
		PositiveShare: pos,
		NegativeShare: neg,
		NeutralShare:  neu,
		Score:         decimal.NewFromFloat(clamp(score, 0, 100)).Round(2).InexactFloat64(),
		ObservedAt:    at.UTC(),
	}
}

func sanitizeText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 {
		in = truncate(in, maxLen)
	}
	return in
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func htmlStrip(in string) string {
	if strings.TrimSpace(in) == "" {
		return ""
	}
	var b strings.Builder
	inside := false
	for _, r := range in {
		switch r {
		case '<':
			inside = true
			continue
		case '>':
			inside = false
			continue
		}
		if !inside {
			b.WriteRune(r)
		}
	}
	return b.String()
}
