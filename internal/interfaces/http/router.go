package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/EconSOM/internal/interfaces/http/handlers"
	"github.com/turtacn/EconSOM/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.  Nil members are skipped.
type RouterConfig struct {
	// Handlers
	KohonenHandler *handlers.KohonenHandler
	DebugHandler   *handlers.DebugHandler
	HealthHandler  *handlers.HealthHandler

	// Middleware
	CORS        func(http.Handler) http.Handler
	Logging     func(http.Handler) http.Handler
	RateLimiter *middleware.RateLimiter
	MaxBodySize int64

	// Infrastructure
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter constructs the complete HTTP route tree from the given configuration.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware (applied to every request) ---
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.Logging != nil {
		r.Use(cfg.Logging)
	}
	r.Use(chimw.Recoverer)
	if cfg.CORS != nil {
		r.Use(cfg.CORS)
	}
	if cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodySize))
	}
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Handler)
		}
		if cfg.KohonenHandler != nil {
			api.Route("/kohonen", cfg.KohonenHandler.Routes)
		}
		if cfg.DebugHandler != nil {
			api.Route("/debug", cfg.DebugHandler.Routes)
		}
	})

	return r
}

//Personal.AI order the ending
