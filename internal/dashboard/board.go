// Package dashboard holds the latest outcome per dashboard panel in memory.
package dashboard

import (
	"sort"
	"strings"
	"sync"
	"time"

	"cryptopulse/internal/domain"
)

// Snapshot is a consistent copy of the board.
type Snapshot struct {
	Sentiment map[string]domain.Outcome[domain.SentimentReading] `json:"sentiment"`
	OnChain   map[string]domain.Outcome[domain.OnChainSnapshot]  `json:"onchain"`
	Events    *domain.Outcome[[]domain.MarketEvent]              `json:"events,omitempty"`
	UpdatedAt map[string]time.Time                               `json:"updated_at"`
}

// Coins returns the tickers present in the snapshot, sorted.
func (s Snapshot) Coins() []string {
	seen := make(map[string]struct{}, len(s.Sentiment)+len(s.OnChain))
	for k := range s.Sentiment {
		seen[k] = struct{}{}
	}
	for k := range s.OnChain {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Board is safe for concurrent use. Cancelled outcomes never replace what
// is on the board; a superseded refresh leaves the previous value in place.
type Board struct {
	mu        sync.RWMutex
	sentiment map[string]domain.Outcome[domain.SentimentReading]
	onchain   map[string]domain.Outcome[domain.OnChainSnapshot]
	events    *domain.Outcome[[]domain.MarketEvent]
	updated   map[string]time.Time
	now       func() time.Time
}

func NewBoard() *Board {
	return &Board{
		sentiment: make(map[string]domain.Outcome[domain.SentimentReading]),
		onchain:   make(map[string]domain.Outcome[domain.OnChainSnapshot]),
		updated:   make(map[string]time.Time),
		now:       time.Now,
	}
}

func (b *Board) SetSentiment(ticker string, out domain.Outcome[domain.SentimentReading]) bool {
	if out.Status == domain.StatusCancelled {
		return false
	}
	ticker = strings.ToUpper(ticker)
	b.mu.Lock()
	b.sentiment[ticker] = out
	b.updated["sentiment:"+ticker] = b.now().UTC()
	b.mu.Unlock()
	return true
}

func (b *Board) SetOnChain(ticker string, out domain.Outcome[domain.OnChainSnapshot]) bool {
	if out.Status == domain.StatusCancelled {
		return false
	}
	ticker = strings.ToUpper(ticker)
	b.mu.Lock()
	b.onchain[ticker] = out
	b.updated["onchain:"+ticker] = b.now().UTC()
	b.mu.Unlock()
	return true
}

func (b *Board) SetEvents(out domain.Outcome[[]domain.MarketEvent]) bool {
	if out.Status == domain.StatusCancelled {
		return false
	}
	out.Value = append([]domain.MarketEvent(nil), out.Value...)
	b.mu.Lock()
	b.events = &out
	b.updated["events"] = b.now().UTC()
	b.mu.Unlock()
	return true
}

// Snapshot copies the board.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Snapshot{
		Sentiment: make(map[string]domain.Outcome[domain.SentimentReading], len(b.sentiment)),
		OnChain:   make(map[string]domain.Outcome[domain.OnChainSnapshot], len(b.onchain)),
		UpdatedAt: make(map[string]time.Time, len(b.updated)),
	}
	for k, v := range b.sentiment {
		snap.Sentiment[k] = v
	}
	for k, v := range b.onchain {
		snap.OnChain[k] = v
	}
	for k, v := range b.updated {
		snap.UpdatedAt[k] = v
	}
	if b.events != nil {
		ev := *b.events
		ev.Value = append([]domain.MarketEvent(nil), ev.Value...)
		snap.Events = &ev
	}
	return snap
}
