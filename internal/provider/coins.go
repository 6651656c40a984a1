package provider

import (
	"regexp"
	"sort"
	"strings"
)

var symbolTokenRx = regexp.MustCompile(`\$?[A-Za-z]{2,12}`)

// coinAliases lists the words that identify a ticker in free text. Short
// tickers that are also common words (DOT, LINK, SOL) only match with a "$"
// prefix or through their project name.
var coinAliases = map[string][]string{
	"BTC":   {"btc", "bitcoin", "xbt"},
	"ETH":   {"eth", "ethereum", "ether"},
	"SOL":   {"solana"},
	"XRP":   {"xrp", "ripple", "xrpl"},
	"ADA":   {"ada", "cardano"},
	"DOGE":  {"doge", "dogecoin"},
	"DOT":   {"polkadot"},
	"AVAX":  {"avax", "avalanche"},
	"LINK":  {"chainlink"},
	"MATIC": {"matic", "polygon"},
}

var aliasToTicker = func() map[string]string {
	out := make(map[string]string)
	for ticker, aliases := range coinAliases {
		for _, alias := range aliases {
			out[alias] = ticker
		}
	}
	return out
}()

// TickersInText returns the tracked tickers mentioned in text, sorted.
func TickersInText(text string) []string {
	matched := make(map[string]struct{}, 4)
	for _, raw := range symbolTokenRx.FindAllString(text, -1) {
		if strings.HasPrefix(raw, "$") {
			token := strings.ToUpper(strings.TrimPrefix(raw, "$"))
			if _, ok := coinAliases[token]; ok {
				matched[token] = struct{}{}
				continue
			}
		}
		if ticker, ok := aliasToTicker[strings.ToLower(strings.TrimPrefix(raw, "$"))]; ok {
			matched[ticker] = struct{}{}
		}
	}
	if len(matched) == 0 {
		return nil
	}
	out := make([]string, 0, len(matched))
	for ticker := range matched {
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out
}
