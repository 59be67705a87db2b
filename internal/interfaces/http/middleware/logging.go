package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
)

// HTTPMetrics records one finished request.
type HTTPMetrics interface {
	RecordHTTPRequest(method, route string, statusCode int, d time.Duration)
}

// LoggingConfig holds configuration for the request logging middleware.
type LoggingConfig struct {
	// SkipPaths are not logged; they are still measured.
	SkipPaths []string
	// SlowThreshold promotes successful requests to Warn.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips the probes and flags requests slower than the
// longest expected training run.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 30 * time.Second,
	}
}

// statusRecorder captures the status code and bytes written.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestLogging logs each request and records it in metrics.  It expects
// chi's RequestID middleware to run first; the id is copied into the
// context so downstream loggers pick it up.  metrics may be nil.
func RequestLogging(logger logging.Logger, metrics HTTPMetrics, config LoggingConfig) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}
	logger = logger.Named("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			if id := chimw.GetReqID(ctx); id != "" {
				ctx = logging.ContextWithRequestID(ctx, id)
				r = r.WithContext(ctx)
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			route := routePattern(r)
			if metrics != nil {
				metrics.RecordHTTPRequest(r.Method, route, rec.status, duration)
			}
			if skip[r.URL.Path] {
				return
			}

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.String("route", route),
				logging.Int("status", rec.status),
				logging.Duration("duration", duration),
				logging.Int64("bytes", rec.bytes),
				logging.String("remote_addr", r.RemoteAddr),
			}
			l := logger.WithContext(ctx)
			switch {
			case rec.status >= 500:
				l.Error("HTTP request completed with server error", fields...)
			case rec.status >= 400:
				l.Warn("HTTP request completed with client error", fields...)
			case config.SlowThreshold > 0 && duration >= config.SlowThreshold:
				l.Warn("HTTP request completed (slow)", fields...)
			default:
				l.Info("HTTP request completed", fields...)
			}
		})
	}
}

// routePattern returns the matched chi pattern, keeping metric label
// cardinality bounded.  Unmatched requests collapse into one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

//Personal.AI order the ending
