package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gio21sr/oberfit/internal/api"
	"github.com/Gio21sr/oberfit/internal/logger"
	"github.com/Gio21sr/oberfit/internal/schedule"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// @Summary      Health check
// @Description  Reports 503 when the database does not answer a ping.
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.HealthResponse
// @Router       /health [get]
func Health(db pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			logger.Warn("health check: database ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, api.HealthResponse{Status: "degraded", Database: "unavailable"})
			return
		}

		c.JSON(http.StatusOK, api.HealthResponse{Status: "ok", Database: "ok"})
	}
}

// @Summary      Operating hours
// @Description  Weekly opening windows in gym-local time (UTC-6). Classes may start at any full hour in [open, close).
// @Tags         classes
// @Produce      json
// @Success      200 {object} map[string]schedule.Hours
// @Router       /schedule/hours [get]
func OperatingHours(c *gin.Context) {
	c.JSON(http.StatusOK, schedule.WeekTable())
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
