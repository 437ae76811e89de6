package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/byigitt/visa-checker/internal/common"
	"github.com/byigitt/visa-checker/internal/config"
	"github.com/byigitt/visa-checker/internal/domain/appointment"
	"github.com/byigitt/visa-checker/internal/middleware"
)

// StatsProvider exposes the checker's runtime counters.
type StatsProvider interface {
	Stats() appointment.Stats
}

// WindowInspector exposes the current send-budget window state.
type WindowInspector interface {
	Snapshot() (count int, windowStart time.Time)
}

// New creates and configures the Gin router for the status API.
func New(cfg *config.Config, checker StatsProvider, window WindowInspector) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()

	// Global middleware stack (order matters)
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	r.GET("/healthz", healthCheck)

	api := r.Group("/api/v1")
	{
		api.GET("/status", statusHandler(checker, window))
	}

	return r
}

// healthCheck handles GET /healthz
func healthCheck(c *gin.Context) {
	common.Success(c, http.StatusOK, gin.H{
		"status":  "ok",
		"service": "visa-checker",
	})
}

// statusHandler handles GET /api/v1/status
func statusHandler(checker StatsProvider, window WindowInspector) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, windowStart := window.Snapshot()
		common.Success(c, http.StatusOK, gin.H{
			"checker": checker.Stats(),
			"rate_window": gin.H{
				"count":        count,
				"window_start": windowStart.UTC().Format(time.RFC3339),
			},
		})
	}
}
