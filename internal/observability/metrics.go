// Package observability holds the Prometheus instruments piiguard exports.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "piiguard"

// Metrics groups all Prometheus instruments used by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Records       *prometheus.CounterVec
	Detections    *prometheus.CounterVec
	ParseFailures *prometheus.CounterVec
	RecordErrors  prometheus.Counter
	CacheHits     prometheus.Counter
	BatchDuration prometheus.Histogram
}

// NewMetrics registers the instruments on a fresh registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_total",
			Help:      "Records classified, by verdict.",
		}, []string{"verdict"}),
		Detections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "detections_total",
			Help:      "Masked values, by identifier type.",
		}, []string{"type"}),
		ParseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "parse_failures_total",
			Help:      "Records whose embedded JSON needed repair or could not be decoded, by outcome.",
		}, []string{"outcome"}),
		RecordErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "record_errors_total",
			Help:      "Records that failed with an internal error and were emitted empty.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_hits_total",
			Help:      "Records answered from the result cache.",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time to classify one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

// ObserveRecord counts one classified record and its detections.
func (m *Metrics) ObserveRecord(isPII bool, detections map[string]int) {
	if m == nil {
		return
	}
	verdict := "clean"
	if isPII {
		verdict = "pii"
	}
	m.Records.WithLabelValues(verdict).Inc()
	for typ, n := range detections {
		m.Detections.WithLabelValues(typ).Add(float64(n))
	}
}

// ObserveDecode counts a repaired or failed decode. outcome is "repaired" or "failed".
func (m *Metrics) ObserveDecode(outcome string) {
	if m == nil {
		return
	}
	m.ParseFailures.WithLabelValues(outcome).Inc()
}

// ObserveRecordError counts a record that panicked during processing.
func (m *Metrics) ObserveRecordError() {
	if m == nil {
		return
	}
	m.RecordErrors.Inc()
}

// ObserveCacheHit counts a cache hit.
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// ObserveBatch records the duration of one batch.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.Observe(d.Seconds())
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
