package handler

import (
	"context"

	"cryptopulse/internal/dashboard"
	"cryptopulse/internal/domain"
	"cryptopulse/internal/gateway"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// DataGateway is the part of the gateway client the API serves.
type DataGateway interface {
	GetSentiment(ctx context.Context, ticker string) domain.Outcome[domain.SentimentReading]
	GetOnChain(ctx context.Context, ticker string) domain.Outcome[domain.OnChainSnapshot]
	GetEvents(ctx context.Context) domain.Outcome[[]domain.MarketEvent]
	Overview(ctx context.Context, tickers []string) gateway.Overview
}

type Handler struct {
	tracer      trace.Tracer
	gateway     DataGateway
	board       *dashboard.Board
	defaultCoin []string
}

func New(tracer trace.Tracer, gw DataGateway, board *dashboard.Board, trackedCoins []string) *Handler {
	return &Handler{
		tracer:      tracer,
		gateway:     gw,
		board:       board,
		defaultCoin: append([]string(nil), trackedCoins...),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/sentiment/:symbol", h.GetSentiment)
	r.GET("/api/onchain/:symbol", h.GetOnChain)
	r.GET("/api/events", h.GetEvents)
	r.GET("/api/overview", h.GetOverview)
	r.GET("/api/dashboard", h.GetDashboard)
}
