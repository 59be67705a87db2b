package main

import (
	"net/http"

	"github.com/turtacn/EconSOM/internal/app"
	"github.com/turtacn/EconSOM/internal/config"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/EconSOM/internal/interfaces/http"
	"github.com/turtacn/EconSOM/internal/interfaces/http/handlers"
	"github.com/turtacn/EconSOM/internal/interfaces/http/middleware"
)

// buildRouter wires handlers and middleware.  Debug routes are mounted only
// in debug mode.
func buildRouter(cfg *config.Config, a *app.App, logger logging.Logger) (http.Handler, *middleware.RateLimiter) {
	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = cfg.Server.RateLimit
	if cfg.Server.RateBurst > 0 {
		rl.BurstSize = cfg.Server.RateBurst
	}
	limiter := middleware.NewRateLimiter(rl)

	rc := httpserver.RouterConfig{
		KohonenHandler: handlers.NewKohonenHandler(a.Service, a.JobSubmitter(), logger),
		HealthHandler:  handlers.NewHealthHandler(config.Version, a.Metrics, a.HealthCheckers()...),
		CORS:           middleware.CORS(middleware.CORSConfigFrom(cfg.Server.CORSOrigins)),
		Logging:        middleware.RequestLogging(logger, a.Metrics, middleware.DefaultLoggingConfig()),
		RateLimiter:    limiter,
		MaxBodySize:    cfg.Server.MaxBodySize,
	}
	if cfg.Server.Mode == "debug" {
		rc.DebugHandler = handlers.NewDebugHandler(a.Service)
	}
	if cfg.Metrics.Enabled {
		rc.MetricsCollector = a.Collector
	}
	return httpserver.NewRouter(rc), limiter
}

//Personal.AI order the ending
