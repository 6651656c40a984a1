package handler

import (
	"net/http"
	"strings"

	"cryptopulse/internal/domain"
	"cryptopulse/internal/gateway"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// statusFor maps an outcome onto an HTTP status. Degraded successes are
// still 200; the body's source field tells them apart.
func statusFor(status domain.Status, kind domain.ErrorKind) int {
	if status == domain.StatusSuccess {
		return http.StatusOK
	}
	if status == domain.StatusCancelled {
		return http.StatusConflict
	}
	switch kind {
	case domain.KindUnsupportedCoin:
		return http.StatusNotFound
	case domain.KindMissingCredential:
		return http.StatusServiceUnavailable
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// GetSentiment godoc
// @Summary      Social sentiment for a coin
// @Description  Returns positive/negative/neutral shares and a 0-100 score. The source field reports live or fallback data.
// @Tags         data
// @Produce      json
// @Param        symbol  path  string  true  "Coin ticker (e.g., BTC, ETH)"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/sentiment/{symbol} [get]
func (h *Handler) GetSentiment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-sentiment")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	out := h.gateway.GetSentiment(ctx, symbol)
	c.JSON(statusFor(out.Status, out.Kind()), out)
}

// GetOnChain godoc
// @Summary      On-chain activity for a coin
// @Description  Returns active wallets, their daily growth and the large transaction count
// @Tags         data
// @Produce      json
// @Param        symbol  path  string  true  "Coin ticker (e.g., BTC, ETH)"
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/onchain/{symbol} [get]
func (h *Handler) GetOnChain(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-onchain")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	out := h.gateway.GetOnChain(ctx, symbol)
	c.JSON(statusFor(out.Status, out.Kind()), out)
}

// GetEvents godoc
// @Summary      Hot market news
// @Description  Returns recent news/events for the tracked coin set
// @Tags         data
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/events [get]
func (h *Handler) GetEvents(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-events")
	defer span.End()

	out := h.gateway.GetEvents(ctx)
	c.JSON(statusFor(out.Status, out.Kind()), out)
}

// GetOverview godoc
// @Summary      Sentiment, on-chain data and events in one call
// @Description  Fetches every panel concurrently; each entry carries its own status
// @Tags         data
// @Produce      json
// @Param        coins  query  string  false  "Comma-separated tickers (defaults to the tracked set)"
// @Success      200  {object}  gateway.Overview
// @Failure      400  {object}  map[string]string
// @Router       /api/overview [get]
func (h *Handler) GetOverview(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-overview")
	defer span.End()

	coins := h.defaultCoin
	if raw := strings.TrimSpace(c.Query("coins")); raw != "" {
		requested, err := gateway.OverviewTickers(strings.Split(raw, ","))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		coins = requested
	}
	span.SetAttributes(attribute.StringSlice("coins", coins))

	c.JSON(http.StatusOK, h.gateway.Overview(ctx, coins))
}

// GetDashboard godoc
// @Summary      Latest refreshed dashboard
// @Description  Returns the in-memory board kept current by the background refresher
// @Tags         data
// @Produce      json
// @Success      200  {object}  dashboard.Snapshot
// @Failure      503  {object}  map[string]string
// @Router       /api/dashboard [get]
func (h *Handler) GetDashboard(c *gin.Context) {
	if h.board == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard refresher disabled"})
		return
	}
	c.JSON(http.StatusOK, h.board.Snapshot())
}
