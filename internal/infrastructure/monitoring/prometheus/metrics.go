package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds the pipeline, transport and infrastructure series.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Pipeline
	RunsTotal          CounterVec
	RunDuration        HistogramVec
	AssemblyAccepted   GaugeVec
	AssemblyRejected   CounterVec
	MatrixShape        GaugeVec
	MatrixImputedCells CounterVec
	QuantizationError  GaugeVec
	TopographicError   GaugeVec
	RendersTotal       CounterVec
	ExportsTotal       CounterVec

	// Worker
	MessagesTotal          CounterVec
	MessageProcessDuration HistogramVec

	// Infrastructure
	CacheRequestsTotal CounterVec
	HealthCheckStatus  GaugeVec
	ErrorsTotal        CounterVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultRunDurationBuckets  = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}
)

func NewAppMetrics(c MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = c.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = c.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.RunsTotal = c.RegisterCounter("som_runs_total", "Pipeline runs by profile and outcome", "profile", "status")
	m.RunDuration = c.RegisterHistogram("som_run_duration_seconds", "Pipeline run duration", DefaultRunDurationBuckets, "profile")
	m.AssemblyAccepted = c.RegisterGauge("som_assembly_accepted", "Observations accepted by the last assembly")
	m.AssemblyRejected = c.RegisterCounter("som_assembly_rejected_total", "Observations rejected during assembly", "reason")
	m.MatrixShape = c.RegisterGauge("som_matrix_shape", "Rows and columns of the last analysis matrix", "axis")
	m.MatrixImputedCells = c.RegisterCounter("som_matrix_imputed_cells_total", "Matrix cells filled with the column mean")
	m.QuantizationError = c.RegisterGauge("som_quantization_error", "Quantization error of the last trained map")
	m.TopographicError = c.RegisterGauge("som_topographic_error", "Topographic error of the last trained map")
	m.RendersTotal = c.RegisterCounter("som_renders_total", "Rendered map images", "kind")
	m.ExportsTotal = c.RegisterCounter("som_exports_total", "Workbook exports", "status")

	m.MessagesTotal = c.RegisterCounter("worker_messages_total", "Consumed analysis requests", "outcome")
	m.MessageProcessDuration = c.RegisterHistogram("worker_message_duration_seconds", "Analysis request handling time", DefaultRunDurationBuckets)

	m.CacheRequestsTotal = c.RegisterCounter("cache_requests_total", "Render cache lookups", "result")
	m.HealthCheckStatus = c.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = c.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// ObserveRun implements analysis.Metrics.
func (m *AppMetrics) ObserveRun(profile, status string, d time.Duration) {
	m.RunsTotal.WithLabelValues(profile, status).Inc()
	m.RunDuration.WithLabelValues(profile).Observe(d.Seconds())
}

func (m *AppMetrics) ObserveAssembly(accepted int, rejectedByReason map[string]int) {
	m.AssemblyAccepted.WithLabelValues().Set(float64(accepted))
	for reason, n := range rejectedByReason {
		if n > 0 {
			m.AssemblyRejected.WithLabelValues(reason).Add(float64(n))
		}
	}
}

func (m *AppMetrics) ObserveMatrix(rows, cols, imputed int) {
	m.MatrixShape.WithLabelValues("rows").Set(float64(rows))
	m.MatrixShape.WithLabelValues("cols").Set(float64(cols))
	if imputed > 0 {
		m.MatrixImputedCells.WithLabelValues().Add(float64(imputed))
	}
}

func (m *AppMetrics) ObserveQuality(quantizationError, topographicError float64) {
	m.QuantizationError.WithLabelValues().Set(quantizationError)
	m.TopographicError.WithLabelValues().Set(topographicError)
}

func (m *AppMetrics) IncRender(kind string)   { m.RendersTotal.WithLabelValues(kind).Inc() }
func (m *AppMetrics) IncExport(status string) { m.ExportsTotal.WithLabelValues(status).Inc() }

// IncCache implements redis.CacheMetrics.
func (m *AppMetrics) IncCache(result string) { m.CacheRequestsTotal.WithLabelValues(result).Inc() }

// ObserveMessage records one handled worker message.
func (m *AppMetrics) ObserveMessage(outcome string, d time.Duration) {
	m.MessagesTotal.WithLabelValues(outcome).Inc()
	m.MessageProcessDuration.WithLabelValues().Observe(d.Seconds())
}

func (m *AppMetrics) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *AppMetrics) SetHealth(component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
