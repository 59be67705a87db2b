package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/turtacn/EconSOM/pkg/types/common"
)

// HealthChecker is a dependency the readiness probe pings.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a ping function to HealthChecker.
type CheckFunc struct {
	Component string
	Fn        func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.Component }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// HealthStatusObserver receives readiness results, e.g. a health gauge.
type HealthStatusObserver interface {
	SetHealth(component string, up bool)
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	observer HealthStatusObserver
	version  string
	startAt  time.Time
}

func NewHealthHandler(version string, observer HealthStatusObserver, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers, observer: observer, version: version, startAt: time.Now()}
}

// LivenessResponse is the body of GET /healthz.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the body of GET /readyz.
type ReadinessResponse struct {
	Status     common.HealthStatus               `json:"status"`
	Components map[string]common.ComponentHealth `json:"components,omitempty"`
}

// Liveness never checks dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness answers 503 when any dependency is down.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := h.checkAll(ctx)
	resp := ReadinessResponse{Status: common.HealthUp, Components: components}
	for _, c := range components {
		if c.Status != common.HealthUp {
			resp.Status = common.HealthDown
			writeJSON(w, r, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// checkAll pings every dependency concurrently.
func (h *HealthHandler) checkAll(ctx context.Context) map[string]common.ComponentHealth {
	results := make(map[string]common.ComponentHealth, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()
			start := time.Now()
			err := c.Check(ctx)
			ch := common.ComponentHealth{
				Name:    c.Name(),
				Status:  common.HealthUp,
				Latency: time.Since(start),
			}
			if err != nil {
				ch.Status = common.HealthDown
				ch.Message = err.Error()
			}
			if h.observer != nil {
				h.observer.SetHealth(ch.Name, err == nil)
			}
			mu.Lock()
			results[ch.Name] = ch
			mu.Unlock()
		}(checker)
	}
	wg.Wait()
	return results
}

//Personal.AI order the ending
