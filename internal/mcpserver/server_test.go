package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"cryptopulse/internal/dashboard"
	"cryptopulse/internal/domain"
	"cryptopulse/internal/gateway"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
)

type gatewayStub struct {
	lastSymbol   string
	overviewWith []string
}

func (g *gatewayStub) GetSentiment(_ context.Context, ticker string) domain.Outcome[domain.SentimentReading] {
	g.lastSymbol = ticker
	return domain.Success(domain.SentimentReading{Coin: ticker, NeutralShare: 100, Score: 50}, domain.SourceNeutralDefault)
}

func (g *gatewayStub) GetOnChain(_ context.Context, ticker string) domain.Outcome[domain.OnChainSnapshot] {
	return domain.Failure[domain.OnChainSnapshot](domain.NewError(domain.KindMissingCredential, "COINMETRICS_API_KEY is not configured"))
}

func (g *gatewayStub) GetEvents(context.Context) domain.Outcome[[]domain.MarketEvent] {
	return domain.Success([]domain.MarketEvent{{ID: "cp-1", Coin: "BTC", Title: "headline"}}, domain.SourceLive)
}

func (g *gatewayStub) Overview(_ context.Context, tickers []string) gateway.Overview {
	g.overviewWith = tickers
	return gateway.Overview{}
}

func newTestServer(gw Gateway, board *dashboard.Board) *Server {
	return New(trace.NewNoopTracerProvider().Tracer("test"), gw, board, []string{"BTC", "ETH"}, 0, nil)
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %+v", res)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestGetSentimentNormalizesSymbol(t *testing.T) {
	gw := &gatewayStub{}
	s := newTestServer(gw, nil)

	res, _, err := s.getSentiment(context.Background(), nil, SymbolInput{Symbol: " eth "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.lastSymbol != "ETH" {
		t.Fatalf("expected ETH, got %q", gw.lastSymbol)
	}
	var out domain.Outcome[domain.SentimentReading]
	if err := json.Unmarshal([]byte(textOf(t, res)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Source != domain.SourceNeutralDefault || out.Value.Score != 50 || res.IsError {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	if _, _, err := s.getSentiment(context.Background(), nil, SymbolInput{}); err == nil {
		t.Fatal("expected error for empty symbol")
	}
}

func TestGetOnChainFailureIsToolError(t *testing.T) {
	res, _, err := newTestServer(&gatewayStub{}, nil).getOnChain(context.Background(), nil, SymbolInput{Symbol: "btc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError || !strings.Contains(textOf(t, res), "missing_credential") {
		t.Fatalf("expected failure content, got %+v", res)
	}
}

func TestGetOverviewDefaultsToTracked(t *testing.T) {
	gw := &gatewayStub{}
	s := newTestServer(gw, nil)

	if _, _, err := s.getOverview(context.Background(), nil, OverviewInput{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(gw.overviewWith, ",") != "BTC,ETH" {
		t.Fatalf("expected tracked coins, got %v", gw.overviewWith)
	}
	s.getOverview(context.Background(), nil, OverviewInput{Coins: []string{"SOL"}})
	if strings.Join(gw.overviewWith, ",") != "SOL" {
		t.Fatalf("expected requested coins, got %v", gw.overviewWith)
	}

	many := make([]string, gateway.MaxOverviewCoins+1)
	for i := range many {
		many[i] = "COIN" + strings.Repeat("X", i)
	}
	if _, _, err := s.getOverview(context.Background(), nil, OverviewInput{Coins: many}); err == nil {
		t.Fatal("expected error above the overview coin cap")
	}
	if strings.Join(gw.overviewWith, ",") != "SOL" {
		t.Fatalf("gateway should not be called for a rejected list, got %v", gw.overviewWith)
	}
}

func TestGetDashboard(t *testing.T) {
	if _, _, err := newTestServer(&gatewayStub{}, nil).getDashboard(context.Background(), nil, NoInput{}); err == nil {
		t.Fatal("expected error without a board")
	}

	board := dashboard.NewBoard()
	board.SetOnChain("BTC", domain.Success(domain.OnChainSnapshot{Coin: "BTC", ActiveWallets: 7}, domain.SourceLive))
	res, _, err := newTestServer(&gatewayStub{}, board).getDashboard(context.Background(), nil, NoInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(textOf(t, res), `"active_wallets": 7`) {
		t.Fatalf("unexpected dashboard: %s", textOf(t, res))
	}
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(&gatewayStub{}, nil).MCP()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"get_sentiment", "get_onchain", "get_events", "get_overview", "get_dashboard"} {
		if !names[want] {
			t.Fatalf("tool %s not registered", want)
		}
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "get_events", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if res.IsError || !strings.Contains(textOf(t, res), "headline") {
		t.Fatalf("unexpected result: %+v", res)
	}
}
