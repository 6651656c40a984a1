package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse reports liveness and whether the background dashboard is running.
type HealthResponse struct {
	Status    string   `json:"status"`
	Dashboard string   `json:"dashboard"`
	Coins     []string `json:"coins"`
}

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service and the tracked coin set
// @Tags         health
// @Produce      json
// @Success      200  {object}  handler.HealthResponse
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	dashboard := "disabled"
	if h.board != nil {
		dashboard = "enabled"
	}
	coins := h.defaultCoin
	if coins == nil {
		coins = []string{}
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Dashboard: dashboard, Coins: coins})
}
