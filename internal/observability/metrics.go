package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "mindcare"

// Metrics wraps the Prometheus collectors of the triage service. All methods
// are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	Classifications       *prometheus.CounterVec
	StressScore           prometheus.Histogram
	StorageFailures       *prometheus.CounterVec
	CrisisPersistFailures prometheus.Counter
	SweepRecords          *prometheus.CounterVec
	ScoringFaults         prometheus.Counter
	HTTPRequests          *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "classifications_total",
			Help:      "Messages classified, by urgency level",
		}, []string{"urgency"}),
		StressScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "profile_stress_level",
			Help:      "Smoothed profile stress level after each turn",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		}),
		StorageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "storage_failures_total",
			Help:      "Failed record store operations",
		}, []string{"operation"}),
		CrisisPersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "crisis_persist_failures_total",
			Help:      "Crisis records that could not be persisted after retries",
		}),
		SweepRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sweep_records_total",
			Help:      "Records anonymized or deleted by retention sweeps",
		}, []string{"category", "action"}),
		ScoringFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scoring_faults_total",
			Help:      "Analyses that panicked and fell back to elevated urgency",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.Classifications,
		m.StressScore,
		m.StorageFailures,
		m.CrisisPersistFailures,
		m.SweepRecords,
		m.ScoringFaults,
		m.HTTPRequests,
		m.HTTPRequestDuration,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordClassification(urgency string) {
	if m != nil {
		m.Classifications.WithLabelValues(urgency).Inc()
	}
}

func (m *Metrics) RecordStressLevel(level float64) {
	if m != nil {
		m.StressScore.Observe(level)
	}
}

func (m *Metrics) RecordStorageFailure(operation string) {
	if m != nil {
		m.StorageFailures.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) RecordCrisisPersistFailure() {
	if m != nil {
		m.CrisisPersistFailures.Inc()
	}
}

func (m *Metrics) RecordSweep(category, action string, n int) {
	if m != nil && n > 0 {
		m.SweepRecords.WithLabelValues(category, action).Add(float64(n))
	}
}

func (m *Metrics) RecordScoringFault() {
	if m != nil {
		m.ScoringFaults.Inc()
	}
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
