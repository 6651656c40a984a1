// Package catalog holds the static coin identity table and the static
// on-chain fallback table. Both are embedded, parsed once and never mutated.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cryptopulse/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed coins.yaml
var coinsYAML []byte

//go:embed onchain_static.yaml
var onchainStaticYAML []byte

type staticRow struct {
	ActiveWallets     int64   `yaml:"active_wallets"`
	GrowthPct         float64 `yaml:"growth_pct"`
	LargeTransactions int64   `yaml:"large_transactions"`
}

// Catalog is safe for concurrent use because it is read-only after Load.
type Catalog struct {
	coins   map[string]domain.CoinIdentity
	byEvent map[string]string
	order   []string
	static  map[string]staticRow
}

// Load parses the coin identity and static on-chain tables.
func Load(coinsData, staticData []byte) (*Catalog, error) {
	var coinsDoc struct {
		Coins []domain.CoinIdentity `yaml:"coins"`
	}
	if err := yaml.Unmarshal(coinsData, &coinsDoc); err != nil {
		return nil, fmt.Errorf("parse coin table: %w", err)
	}
	var staticDoc struct {
		Snapshots map[string]staticRow `yaml:"snapshots"`
	}
	if len(staticData) > 0 {
		if err := yaml.Unmarshal(staticData, &staticDoc); err != nil {
			return nil, fmt.Errorf("parse static on-chain table: %w", err)
		}
	}

	c := &Catalog{
		coins:   make(map[string]domain.CoinIdentity, len(coinsDoc.Coins)),
		byEvent: make(map[string]string, len(coinsDoc.Coins)),
		static:  make(map[string]staticRow, len(staticDoc.Snapshots)),
	}
	for _, coin := range coinsDoc.Coins {
		ticker := normalize(coin.Ticker)
		if ticker == "" {
			return nil, fmt.Errorf("coin table has a row without ticker")
		}
		if _, dup := c.coins[ticker]; dup {
			return nil, fmt.Errorf("duplicate ticker %s", ticker)
		}
		coin.Ticker = ticker
		c.coins[ticker] = coin
		c.order = append(c.order, ticker)
		if code := normalize(coin.EventsCode); code != "" {
			c.byEvent[code] = ticker
		}
	}
	for ticker, row := range staticDoc.Snapshots {
		c.static[normalize(ticker)] = row
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog built from the embedded tables.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(coinsYAML, onchainStaticYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Lookup resolves a ticker (case-insensitive).
func (c *Catalog) Lookup(ticker string) (domain.CoinIdentity, bool) {
	coin, ok := c.coins[normalize(ticker)]
	return coin, ok
}

// Tickers lists the tracked tickers in table order.
func (c *Catalog) Tickers() []string {
	return append([]string(nil), c.order...)
}

// TickerForEventCode maps an events-provider currency code back to a ticker.
func (c *Catalog) TickerForEventCode(code string) (string, bool) {
	ticker, ok := c.byEvent[normalize(code)]
	return ticker, ok
}

// EventCodes returns the events-provider codes for the given tickers, skipping
// unmapped ones. The result is sorted so requests are stable.
func (c *Catalog) EventCodes(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		coin, ok := c.Lookup(t)
		if !ok || coin.EventsCode == "" {
			continue
		}
		if _, dup := seen[coin.EventsCode]; dup {
			continue
		}
		seen[coin.EventsCode] = struct{}{}
		out = append(out, coin.EventsCode)
	}
	sort.Strings(out)
	return out
}

// StaticOnChain returns the static fallback snapshot for ticker, stamped with now.
func (c *Catalog) StaticOnChain(ticker string, now time.Time) (domain.OnChainSnapshot, bool) {
	ticker = normalize(ticker)
	row, ok := c.static[ticker]
	if !ok {
		return domain.OnChainSnapshot{}, false
	}
	return domain.OnChainSnapshot{
		Coin:                   ticker,
		ActiveWallets:          row.ActiveWallets,
		ActiveWalletsGrowthPct: row.GrowthPct,
		LargeTransactionCount:  row.LargeTransactions,
		ObservedAt:             now.UTC(),
	}, true
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
