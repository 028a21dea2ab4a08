package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives operation measurements
type Recorder interface {
	Observe(metric, label string, d time.Duration)
	Increment(metric, label string)
}

// Timer measures one operation for a Recorder
type Timer struct {
	rec    Recorder
	metric string
	label  string
	start  time.Time
}

// StartTimer starts measuring metric for label
func StartTimer(rec Recorder, metric, label string) *Timer {
	return &Timer{rec: rec, metric: metric, label: label, start: time.Now()}
}

// Stop records the elapsed time
func (t *Timer) Stop() {
	t.rec.Observe(t.metric, t.label, time.Since(t.start))
}

// PrometheusMetrics exposes operation and HTTP metrics to a Prometheus
// registry.
type PrometheusMetrics struct {
	durations *prometheus.HistogramVec
	counts    *prometheus.CounterVec
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the collectors with reg
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of bus operations in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"metric", "name"}),
		counts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Bus operation counters by metric and name",
		}, []string{"metric", "name"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.durations, m.counts, m.requests, m.latency)
	return m
}

// Observe implements Recorder
func (m *PrometheusMetrics) Observe(metric, label string, d time.Duration) {
	m.durations.WithLabelValues(metric, label).Observe(d.Seconds())
}

// Increment implements Recorder
func (m *PrometheusMetrics) Increment(metric, label string) {
	m.counts.WithLabelValues(metric, label).Inc()
}

// ObserveHTTP records one served request
func (m *PrometheusMetrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Fanout sends every measurement to all recorders
type Fanout []Recorder

// Observe implements Recorder
func (f Fanout) Observe(metric, label string, d time.Duration) {
	for _, r := range f {
		r.Observe(metric, label, d)
	}
}

// Increment implements Recorder
func (f Fanout) Increment(metric, label string) {
	for _, r := range f {
		r.Increment(metric, label)
	}
}
