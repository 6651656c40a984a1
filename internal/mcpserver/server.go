// Package mcpserver exposes the gateway as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cryptopulse/internal/dashboard"
	"cryptopulse/internal/domain"
	"cryptopulse/internal/gateway"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	serverName     = "cryptopulse"
	serverVersion  = "1.0.0"
	defaultTimeout = 25 * time.Second
)

// Gateway is the data surface the tools call.
type Gateway interface {
	GetSentiment(ctx context.Context, ticker string) domain.Outcome[domain.SentimentReading]
	GetOnChain(ctx context.Context, ticker string) domain.Outcome[domain.OnChainSnapshot]
	GetEvents(ctx context.Context) domain.Outcome[[]domain.MarketEvent]
	Overview(ctx context.Context, tickers []string) gateway.Overview
}

// SymbolInput selects one coin.
type SymbolInput struct {
	Symbol string `json:"symbol" jsonschema:"coin ticker such as BTC or ETH"`
}

// OverviewInput selects the coins of an overview; empty means the tracked set.
type OverviewInput struct {
	Coins []string `json:"coins,omitempty" jsonschema:"coin tickers to include"`
}

// NoInput is used by tools that take no arguments.
type NoInput struct{}

type Server struct {
	tracer  trace.Tracer
	gateway Gateway
	board   *dashboard.Board
	tracked []string
	timeout time.Duration
	logger  *zap.Logger
}

func New(tracer trace.Tracer, gw Gateway, board *dashboard.Board, tracked []string, timeout time.Duration, logger *zap.Logger) *Server {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		tracer:  tracer,
		gateway: gw,
		board:   board,
		tracked: append([]string(nil), tracked...),
		timeout: timeout,
		logger:  logger,
	}
}

// MCP builds a protocol server with every tool registered.
func (s *Server) MCP() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_sentiment",
		Description: "Social sentiment for one coin: positive/negative/neutral shares and a 0-100 score, tagged with its data source.",
	}, s.getSentiment)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_onchain",
		Description: "Daily on-chain activity for one coin: active wallets, their growth and large transaction count.",
	}, s.getOnChain)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_events",
		Description: "Recent hot news and market events for the tracked coins.",
	}, s.getEvents)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_overview",
		Description: "Sentiment, on-chain data and events for several coins in one call.",
	}, s.getOverview)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dashboard",
		Description: "The latest dashboard kept current by the background refresher.",
	}, s.getDashboard)

	return server
}

func (s *Server) getSentiment(ctx context.Context, _ *mcp.CallToolRequest, in SymbolInput) (*mcp.CallToolResult, any, error) {
	symbol, err := symbolOf(in)
	if err != nil {
		return nil, nil, err
	}
	ctx, span := s.tracer.Start(ctx, "mcp.get-sentiment")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := s.gateway.GetSentiment(ctx, symbol)
	s.logCall("get_sentiment", symbol, out.Status, out.Source)
	return jsonResult(out, !out.OK())
}

func (s *Server) getOnChain(ctx context.Context, _ *mcp.CallToolRequest, in SymbolInput) (*mcp.CallToolResult, any, error) {
	symbol, err := symbolOf(in)
	if err != nil {
		return nil, nil, err
	}
	ctx, span := s.tracer.Start(ctx, "mcp.get-onchain")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := s.gateway.GetOnChain(ctx, symbol)
	s.logCall("get_onchain", symbol, out.Status, out.Source)
	return jsonResult(out, !out.OK())
}

func (s *Server) getEvents(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	ctx, span := s.tracer.Start(ctx, "mcp.get-events")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := s.gateway.GetEvents(ctx)
	s.logCall("get_events", "", out.Status, out.Source)
	return jsonResult(out, !out.OK())
}

func (s *Server) getOverview(ctx context.Context, _ *mcp.CallToolRequest, in OverviewInput) (*mcp.CallToolResult, any, error) {
	coins := s.tracked
	if len(in.Coins) > 0 {
		requested, err := gateway.OverviewTickers(in.Coins)
		if err != nil {
			return nil, nil, err
		}
		coins = requested
	}
	ctx, span := s.tracer.Start(ctx, "mcp.get-overview")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("coins", coins))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return jsonResult(s.gateway.Overview(ctx, coins), false)
}

func (s *Server) getDashboard(context.Context, *mcp.CallToolRequest, NoInput) (*mcp.CallToolResult, any, error) {
	if s.board == nil {
		return nil, nil, fmt.Errorf("dashboard refresher is not running")
	}
	return jsonResult(s.board.Snapshot(), false)
}

func (s *Server) logCall(tool, symbol string, status domain.Status, source domain.Source) {
	s.logger.Info("mcp tool call",
		zap.String("tool", tool),
		zap.String("symbol", symbol),
		zap.String("status", string(status)),
		zap.String("source", string(source)),
	)
}

func symbolOf(in SymbolInput) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	return symbol, nil
}

// jsonResult returns v as indented JSON text. Failed outcomes are still
// returned as content so the caller sees the error kind.
func jsonResult(v any, isError bool) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
		IsError: isError,
	}, nil, nil
}
