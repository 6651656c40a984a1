package tui

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cryptopulse/internal/dashboard"
	"cryptopulse/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeBoard struct {
	snap dashboard.Snapshot
}

func (f *fakeBoard) Snapshot() dashboard.Snapshot { return f.snap }

type fakeRefresher struct {
	calls atomic.Int32
}

func (f *fakeRefresher) RefreshAll(context.Context) { f.calls.Add(1) }

func testBoard() *fakeBoard {
	events := domain.Success([]domain.MarketEvent{
		{ID: "cp-1", Coin: "BTC", Title: "Bitcoin ETF inflows rise", PublishedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
	}, domain.SourceLive)
	return &fakeBoard{snap: dashboard.Snapshot{
		Sentiment: map[string]domain.Outcome[domain.SentimentReading]{
			"BTC": domain.Success(domain.SentimentReading{Coin: "BTC", PositiveShare: 40, NegativeShare: 20, NeutralShare: 40, Score: 60}, domain.SourceLive),
			"ETH": domain.Failure[domain.SentimentReading](domain.NewError(domain.KindMissingCredential, "no key")),
		},
		OnChain: map[string]domain.Outcome[domain.OnChainSnapshot]{
			"BTC": domain.Success(domain.OnChainSnapshot{Coin: "BTC", ActiveWallets: 800000, ActiveWalletsGrowthPct: 1.5}, domain.SourceFallbackStatic),
		},
		Events: &events,
	}}
}

func TestSentimentRows(t *testing.T) {
	snap := testBoard().snap
	rows := sentimentRows(coinOrder([]string{"BTC", "ETH", "SOL"}, snap), snap)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][4] != "60" || rows[0][5] != "live" {
		t.Fatalf("unexpected BTC row: %v", rows[0])
	}
	if rows[1][5] != "missing_credential" {
		t.Fatalf("expected failure kind for ETH, got %v", rows[1])
	}
	if rows[2][5] != "loading" {
		t.Fatalf("expected placeholder for SOL, got %v", rows[2])
	}
}

func TestOnChainRows(t *testing.T) {
	snap := testBoard().snap
	rows := onChainRows([]string{"BTC"}, snap)
	if rows[0][1] != "800000" || rows[0][2] != "+1.50%" || rows[0][4] != "fallback-static" {
		t.Fatalf("unexpected row: %v", rows[0])
	}
}

func TestCoinOrderAppendsUntracked(t *testing.T) {
	got := coinOrder([]string{"SOL", "SOL"}, testBoard().snap)
	if strings.Join(got, ",") != "SOL,BTC,ETH" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestViewRendersPanels(t *testing.T) {
	m := NewModel(testBoard(), nil, []string{"BTC", "ETH"}, "alice")
	if m.View() != "Loading dashboard..." {
		t.Fatal("expected loading view before size is known")
	}
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})

	view := m.View()
	for _, want := range []string{"Sentiment", "On-chain", "Events", "Bitcoin ETF inflows rise", "alice"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestKeysCycleFocusAndQuit(t *testing.T) {
	m := NewModel(testBoard(), nil, []string{"BTC"}, "")
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != panelOnChain {
		t.Fatalf("expected on-chain focus, got %d", m.focus)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.focus != panelEvents {
		t.Fatalf("expected focus to wrap to events, got %d", m.focus)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestRefreshKey(t *testing.T) {
	r := &fakeRefresher{}
	m := NewModel(testBoard(), r, []string{"BTC"}, "")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil || !m.refreshing {
		t.Fatal("expected a refresh command")
	}
	if _, again := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}); again != nil {
		t.Fatal("a second refresh should wait for the first")
	}

	msg := cmd()
	if r.calls.Load() != 1 {
		t.Fatalf("expected one refresh call, got %d", r.calls.Load())
	}
	m.Update(msg)
	if m.refreshing || !strings.HasPrefix(m.status, "refreshed in") {
		t.Fatalf("unexpected state after refresh: refreshing=%v status=%q", m.refreshing, m.status)
	}
}

func TestTickReloadsBoard(t *testing.T) {
	board := &fakeBoard{}
	m := NewModel(board, nil, []string{"BTC"}, "")
	if m.sentiment.Rows()[0][5] != "loading" {
		t.Fatalf("expected placeholder row, got %v", m.sentiment.Rows()[0])
	}

	board.snap = testBoard().snap
	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
	if m.sentiment.Rows()[0][5] != "live" {
		t.Fatalf("expected reloaded row, got %v", m.sentiment.Rows()[0])
	}
}
