package tui

import (
	"fmt"
	"sort"

	"cryptopulse/internal/dashboard"
	"cryptopulse/internal/domain"

	"github.com/charmbracelet/bubbles/table"
)

var (
	sentimentColumns = []table.Column{
		{Title: "Coin", Width: 6},
		{Title: "Pos %", Width: 7},
		{Title: "Neg %", Width: 7},
		{Title: "Neu %", Width: 7},
		{Title: "Score", Width: 6},
		{Title: "Source", Width: 16},
	}
	onChainColumns = []table.Column{
		{Title: "Coin", Width: 6},
		{Title: "Wallets", Width: 11},
		{Title: "Growth", Width: 8},
		{Title: "Large Tx", Width: 9},
		{Title: "Source", Width: 16},
	}
)

// coinOrder lists the tracked coins first, then anything else on the board.
func coinOrder(tracked []string, snap dashboard.Snapshot) []string {
	seen := make(map[string]struct{}, len(tracked))
	out := make([]string, 0, len(tracked))
	for _, c := range tracked {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	var extra []string
	for _, c := range snap.Coins() {
		if _, ok := seen[c]; !ok {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func sentimentRows(coins []string, snap dashboard.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(coins))
	for _, c := range coins {
		out, ok := snap.Sentiment[c]
		switch {
		case !ok:
			rows = append(rows, table.Row{c, "-", "-", "-", "-", "loading"})
		case !out.OK():
			rows = append(rows, table.Row{c, "-", "-", "-", "-", string(out.Kind())})
		default:
			v := out.Value
			rows = append(rows, table.Row{
				c,
				fmt.Sprintf("%.2f", v.PositiveShare),
				fmt.Sprintf("%.2f", v.NegativeShare),
				fmt.Sprintf("%.2f", v.NeutralShare),
				fmt.Sprintf("%.0f", v.Score),
				string(out.Source),
			})
		}
	}
	return rows
}

func onChainRows(coins []string, snap dashboard.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(coins))
	for _, c := range coins {
		out, ok := snap.OnChain[c]
		switch {
		case !ok:
			rows = append(rows, table.Row{c, "-", "-", "-", "loading"})
		case !out.OK():
			rows = append(rows, table.Row{c, "-", "-", "-", string(out.Kind())})
		default:
			v := out.Value
			rows = append(rows, table.Row{
				c,
				fmt.Sprintf("%d", v.ActiveWallets),
				fmt.Sprintf("%+.2f%%", v.ActiveWalletsGrowthPct),
				fmt.Sprintf("%d", v.LargeTransactionCount),
				string(out.Source),
			})
		}
	}
	return rows
}

func sourceStyleFor(status domain.Status, source domain.Source) string {
	switch {
	case status != domain.StatusSuccess:
		return failedStyle.Render(string(status))
	case source == domain.SourceLive:
		return liveStyle.Render(string(source))
	default:
		return degradedStyle.Render(string(source))
	}
}
