package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/connectorzzz/advisor-api/internal/service"
)

// StatsHandler serves the analytics dashboard numbers.
type StatsHandler struct {
	stats *service.StatsService
}

func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Get handles GET /api/stats
// Missing credentials and provider errors both surface as a 500 with error
// and details fields; the dashboard renders its "may not be accurate"
// notice off that.
func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.stats.Fetch(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch analytics data")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch analytics data",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
