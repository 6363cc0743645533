// Package prometheus holds the Prometheus implementations of the
// metrics interfaces. Importing it for side effects registers the
// constructors with pkg/metrics.
package prometheus

import (
	"time"

	"github.com/marmos91/idmapd/pkg/idmap"
	"github.com/marmos91/idmapd/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterIdmapMetricsConstructor(NewIdmapMetrics)
}

// idmapMetrics is the Prometheus implementation of idmap.Metrics.
type idmapMetrics struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	backendQueries *prometheus.CounterVec
	queryDuration  *prometheus.HistogramVec
}

// NewIdmapMetrics creates a Prometheus-backed idmap.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewIdmapMetrics() idmap.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &idmapMetrics{
		cacheHits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmapd_cache_hits_total",
				Help: "Total number of fresh identity cache hits by record kind",
			},
			[]string{"kind"}, // "user", "group"
		),
		cacheMisses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmapd_cache_misses_total",
				Help: "Total number of identity lookups that reached the backend",
			},
			[]string{"kind"},
		),
		backendQueries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmapd_backend_queries_total",
				Help: "Total number of backend identity queries by kind and outcome",
			},
			[]string{"kind", "outcome"}, // outcome: "ok", "not_found", "error"
		),
		queryDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "idmapd_backend_query_duration_seconds",
				Help: "Duration of backend identity queries in seconds",
				Buckets: []float64{
					0.001, // local account database
					0.005,
					0.01,
					0.05, // typical LAN directory round trip
					0.1,
					0.5,
					1,
					5, // directory timeouts
				},
			},
			[]string{"kind"},
		),
	}
}

func (m *idmapMetrics) RecordCacheHit(kind string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(kind).Inc()
}

func (m *idmapMetrics) RecordCacheMiss(kind string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(kind).Inc()
}

func (m *idmapMetrics) RecordBackendQuery(kind string, duration time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.backendQueries.WithLabelValues(kind, outcome).Inc()
	m.queryDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
