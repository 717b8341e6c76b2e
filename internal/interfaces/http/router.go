// Package http assembles the gin engine of the query surface and the
// server that runs it.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/compound-analysis/internal/interfaces/http/handlers"
	"github.com/turtacn/compound-analysis/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware dependencies of the
// route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	// Handlers
	JobHandler      *handlers.JobHandler
	CompoundHandler *handlers.CompoundHandler
	MetricsHandler  *handlers.MetricsHandler
	HealthHandler   *handlers.HealthHandler

	// Middleware
	RateLimiter middleware.RateLimiter
	Logging     middleware.LoggingConfig

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
	Mode             string
}

// NewRouter builds the engine: global middleware, health checks, the scrape
// endpoint and the /api/v1 resource groups.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	r.Use(middleware.Metrics(cfg.Metrics))
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, middleware.DefaultRateLimitConfig()))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.JobHandler != nil {
		cfg.JobHandler.RegisterRoutes(api)
	}
	if cfg.CompoundHandler != nil {
		cfg.CompoundHandler.RegisterRoutes(api)
	}
	if cfg.MetricsHandler != nil {
		cfg.MetricsHandler.RegisterRoutes(api)
	}

	return r
}

//Personal.AI order the ending
