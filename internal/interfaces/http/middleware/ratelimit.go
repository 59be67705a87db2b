package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/turtacn/EconSOM/pkg/errors"
)

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client; zero disables
	// limiting.
	RequestsPerSecond float64
	BurstSize         int
	// KeyFunc extracts the client key; defaults to the remote IP.
	KeyFunc   func(r *http.Request) string
	SkipPaths []string
	// IdleTTL drops limiters not used for this long.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig allows 10 req/s with bursts of 20 per client.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		SkipPaths:         []string{"/healthz", "/readyz", "/metrics"},
		IdleTTL:           5 * time.Minute,
	}
}

// remoteIP strips the port; chi's RealIP middleware has already applied
// X-Forwarded-For.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewRateLimiter returns a limiter; call Cleanup periodically or run
// StartCleanup to bound memory.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = remoteIP
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	return &RateLimiter{cfg: cfg, clients: make(map[string]*clientLimiter), now: time.Now}
}

// Allow consumes a token for key.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.BurstSize)}
		l.clients[key] = c
	}
	now := l.now()
	c.lastSeen = now
	l.mu.Unlock()
	return c.limiter.AllowN(now, 1)
}

// Cleanup drops limiters idle for longer than IdleTTL.
func (l *RateLimiter) Cleanup() int {
	cutoff := l.now().Add(-l.cfg.IdleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, k)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every IdleTTL until stop is closed.
func (l *RateLimiter) StartCleanup(stop <-chan struct{}) {
	if l.cfg.IdleTTL <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(l.cfg.IdleTTL)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				l.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}

// Clients returns the number of tracked clients.
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Handler enforces the limit and answers 429 with an error envelope.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	if l.cfg.RequestsPerSecond <= 0 {
		return next
	}
	skip := make(map[string]bool, len(l.cfg.SkipPaths))
	for _, p := range l.cfg.SkipPaths {
		skip[p] = true
	}
	limit := strconv.Itoa(l.cfg.BurstSize)
	retryAfter := strconv.Itoa(int(max(1, 1/l.cfg.RequestsPerSecond)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", limit)
		if !l.Allow(l.cfg.KeyFunc(r)) {
			w.Header().Set("Retry-After", retryAfter)
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, map[string]string{
				"status":  "error",
				"message": "rate limit exceeded, please retry later",
				"code":    errors.CodeRateLimit.String(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

//Personal.AI order the ending
