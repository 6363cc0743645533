package metrics

import "github.com/marmos91/idmapd/pkg/idmap"

// NewIdmapMetrics creates a Prometheus-backed idmap.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// The resolver treats a nil Metrics as a no-op.
func NewIdmapMetrics() idmap.Metrics {
	if !IsEnabled() || newPrometheusIdmapMetrics == nil {
		return nil
	}
	return newPrometheusIdmapMetrics()
}

// newPrometheusIdmapMetrics is implemented in pkg/metrics/prometheus.
// The indirection avoids an import cycle with the prometheus
// subpackage, which imports this package for the registry.
var newPrometheusIdmapMetrics func() idmap.Metrics

// RegisterIdmapMetricsConstructor registers the Prometheus constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterIdmapMetricsConstructor(constructor func() idmap.Metrics) {
	newPrometheusIdmapMetrics = constructor
}
