package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/EconSOM/internal/config"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/pkg/errors"
)

func newTestCollector(t *testing.T) MetricsCollector {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, c MetricsCollector) string {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, logging.NewNopLogger())
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestNewMetricsCollector_WithProcessMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableProcessMetrics: true, EnableGoMetrics: true}, logging.NewNopLogger())
	require.NoError(t, err)
	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "go_goroutines")
}

func TestCollectorConfigFrom(t *testing.T) {
	cfg := CollectorConfigFrom(config.MetricsConfig{}, "apiserver")
	assert.Equal(t, "econsom", cfg.Namespace)
	assert.Equal(t, map[string]string{"service": "apiserver"}, cfg.ConstLabels)

	cfg = CollectorConfigFrom(config.MetricsConfig{Namespace: "custom"}, "")
	assert.Equal(t, "custom", cfg.Namespace)
	assert.Nil(t, cfg.ConstLabels)
}

func TestRegisterCounter_WithLabels(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("http_requests", "HTTP requests", "method").WithLabelValues("GET").Add(5)

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_http_requests{method="GET"} 5`)
}

func TestRegisterCounter_DuplicateSharesVector(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup_counter", "help").WithLabelValues().Inc()
	c.RegisterCounter("dup_counter", "help").WithLabelValues().Inc()

	assert.Contains(t, scrapeMetrics(t, c), "test_unit_dup_counter 2")
}

func TestRegisterGauge(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterGauge("active", "Active").WithLabelValues().Set(10)
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_active 10")
}

func TestRegisterHistogram_DefaultBuckets(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterHistogram("latency", "Latency", nil).WithLabelValues().Observe(0.1)
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_latency_bucket")
}

func TestTimer_ObservesDuration(t *testing.T) {
	c := newTestCollector(t)
	timer := NewTimer(c.RegisterHistogram("timer", "Timer", nil).WithLabelValues())
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.ObserveDuration(), 5*time.Millisecond)
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_timer_count 1")

	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}

func TestConcurrentRegistration(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("concurrent", "help", "id").WithLabelValues("1").Inc()
		}()
	}
	wg.Wait()
	assert.Contains(t, scrapeMetrics(t, c), `test_unit_concurrent{id="1"} 50`)
}

func TestTypeConflictFallsBackToNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("conflict", "help").WithLabelValues().Inc()

	assert.NotPanics(t, func() { c.RegisterGauge("conflict", "help").WithLabelValues().Set(10) })
	assert.Contains(t, scrapeMetrics(t, c), "# TYPE test_unit_conflict counter")
}

func TestMustRegisterAndUnregister(t *testing.T) {
	c := newTestCollector(t)
	pc := prometheus.NewCounter(prometheus.CounterOpts{Name: "custom_collector"})
	c.MustRegister(pc)
	assert.Contains(t, scrapeMetrics(t, c), "custom_collector")

	assert.True(t, c.Unregister(pc))
	assert.NotContains(t, scrapeMetrics(t, c), "custom_collector")
}

//Personal.AI order the ending
