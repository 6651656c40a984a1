// Package tui renders the dashboard board as a terminal UI served over SSH.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cryptopulse/internal/dashboard"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// BoardSource returns the latest dashboard state.
type BoardSource interface {
	Snapshot() dashboard.Snapshot
}

// Refresher fetches every panel again on demand.
type Refresher interface {
	RefreshAll(ctx context.Context)
}

type panel int

const (
	panelSentiment panel = iota
	panelOnChain
	panelEvents
	panelCount
)

const (
	tickEvery      = time.Second
	refreshTimeout = 45 * time.Second
)

var (
	keyQuit    = key.NewBinding(key.WithKeys("ctrl+c", "q"))
	keyNext    = key.NewBinding(key.WithKeys("tab"))
	keyPrev    = key.NewBinding(key.WithKeys("shift+tab"))
	keyRefresh = key.NewBinding(key.WithKeys("r"))
	keyUp      = key.NewBinding(key.WithKeys("up", "k"))
	keyDown    = key.NewBinding(key.WithKeys("down", "j"))
)

type tickMsg time.Time

type refreshedMsg struct {
	took time.Duration
}

// Model is the dashboard program.
type Model struct {
	board     BoardSource
	refresher Refresher
	tracked   []string
	username  string

	sentiment table.Model
	onChain   table.Model
	snap      dashboard.Snapshot

	eventOffset int
	focus       panel
	refreshing  bool
	status      string

	width  int
	height int
	ready  bool
}

func NewModel(board BoardSource, refresher Refresher, tracked []string, username string) *Model {
	if username == "" {
		username = "guest"
	}
	m := &Model{
		board:     board,
		refresher: refresher,
		tracked:   append([]string(nil), tracked...),
		username:  username,
		sentiment: table.New(table.WithColumns(sentimentColumns), table.WithFocused(true)),
		onChain:   table.New(table.WithColumns(onChainColumns)),
	}
	m.reload()
	return m
}

// SetSize sets the terminal size before the first WindowSizeMsg arrives.
func (m *Model) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	m.ready = true
	m.layout()
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyQuit):
			return m, tea.Quit
		case key.Matches(msg, keyNext):
			m.setFocus((m.focus + 1) % panelCount)
			return m, nil
		case key.Matches(msg, keyPrev):
			m.setFocus((m.focus + panelCount - 1) % panelCount)
			return m, nil
		case key.Matches(msg, keyRefresh):
			return m, m.refresh()
		}
		return m, m.updateFocused(msg)

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case tickMsg:
		m.reload()
		return m, tick()

	case refreshedMsg:
		m.refreshing = false
		m.status = fmt.Sprintf("refreshed in %s", msg.took.Round(time.Millisecond))
		m.reload()
	}
	return m, nil
}

func (m *Model) updateFocused(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case panelSentiment:
		m.sentiment, cmd = m.sentiment.Update(msg)
	case panelOnChain:
		m.onChain, cmd = m.onChain.Update(msg)
	case panelEvents:
		switch {
		case key.Matches(msg, keyUp):
			if m.eventOffset > 0 {
				m.eventOffset--
			}
		case key.Matches(msg, keyDown):
			if m.eventOffset < len(m.events())-1 {
				m.eventOffset++
			}
		}
	}
	return cmd
}

func (m *Model) refresh() tea.Cmd {
	if m.refresher == nil || m.refreshing {
		return nil
	}
	m.refreshing = true
	m.status = "refreshing..."
	r := m.refresher
	return func() tea.Msg {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		r.RefreshAll(ctx)
		return refreshedMsg{took: time.Since(start)}
	}
}

func (m *Model) setFocus(p panel) {
	m.focus = p
	m.sentiment.Blur()
	m.onChain.Blur()
	switch p {
	case panelSentiment:
		m.sentiment.Focus()
	case panelOnChain:
		m.onChain.Focus()
	}
}

func (m *Model) reload() {
	if m.board == nil {
		return
	}
	m.snap = m.board.Snapshot()
	coins := coinOrder(m.tracked, m.snap)
	m.sentiment.SetRows(sentimentRows(coins, m.snap))
	m.onChain.SetRows(onChainRows(coins, m.snap))
	if n := len(m.events()); m.eventOffset >= n {
		m.eventOffset = max(n-1, 0)
	}
}

func (m *Model) events() []string {
	if m.snap.Events == nil {
		return nil
	}
	evs := m.snap.Events.Value
	lines := make([]string, 0, len(evs))
	for _, e := range evs {
		lines = append(lines, fmt.Sprintf("%s %-5s %s",
			timeStyle.Render(e.PublishedAt.Format("01-02 15:04")),
			e.Coin,
			headingStyle.Render(e.Title)))
	}
	return lines
}

func (m *Model) layout() {
	tableHeight := (m.height-3)/2 - 4
	if tableHeight < 3 {
		tableHeight = 3
	}
	m.sentiment.SetHeight(tableHeight)
	m.onChain.SetHeight(tableHeight)
	m.sentiment.SetWidth(m.width/2 - 4)
	m.onChain.SetWidth(m.width - m.width/2 - 4)
}

func (m *Model) View() string {
	if !m.ready {
		return "Loading dashboard..."
	}

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth
	topHeight := (m.height - 1) / 2
	bottomHeight := m.height - 1 - topHeight

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		renderPanel("Sentiment", m.sentiment.View(), m.focus == panelSentiment, leftWidth, topHeight),
		renderPanel("On-chain", m.onChain.View(), m.focus == panelOnChain, rightWidth, topHeight),
	)
	bottom := renderPanel(m.eventsTitle(), m.eventsBody(bottomHeight-4), m.focus == panelEvents, m.width, bottomHeight)

	return lipgloss.JoinVertical(lipgloss.Left, top, bottom, m.statusBar())
}

func (m *Model) eventsTitle() string {
	if m.snap.Events == nil {
		return "Events"
	}
	return "Events " + sourceStyleFor(m.snap.Events.Status, m.snap.Events.Source)
}

func (m *Model) eventsBody(rows int) string {
	lines := m.events()
	if len(lines) == 0 {
		if m.snap.Events != nil && !m.snap.Events.OK() {
			return failedStyle.Render("events unavailable: " + string(m.snap.Events.Kind()))
		}
		return mutedStyle.Render("No events yet")
	}
	if rows < 1 {
		rows = 1
	}
	end := min(m.eventOffset+rows, len(lines))
	return strings.Join(lines[m.eventOffset:end], "\n")
}

func (m *Model) statusBar() string {
	help := strings.Join([]string{
		statusKeyStyle.Render("tab") + " panels",
		statusKeyStyle.Render("↑↓") + " scroll",
		statusKeyStyle.Render("r") + " refresh",
		statusKeyStyle.Render("q") + " quit",
	}, " │ ")
	line := m.username + " │ " + help
	if m.status != "" {
		line += " │ " + m.status
	}
	return statusBarStyle.Width(m.width).Render(line)
}
