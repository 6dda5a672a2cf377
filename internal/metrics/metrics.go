// Package metrics defines the Prometheus instrumentation for the refresh
// pipeline. Collectors are registered on the registry passed to New; the
// application wires the default registry, which the HTTP server exposes at
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set groups the pipeline collectors so they can be passed around explicitly
// instead of through package globals. Tests construct a Set against their own
// registry.
type Set struct {
	RefreshCycles   *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	GammaPages      prometheus.Counter
	RewardsPages    prometheus.Counter
	SkippedRecords  prometheus.Counter
	MarketsServed   prometheus.Gauge
	SnapshotVersion prometheus.Gauge
}

// New registers the pipeline collector set on reg and returns it.
func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		RefreshCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "polyboard_refresh_cycles_total",
			Help: "Refresh cycles by result (success, gamma_error).",
		}, []string{"result"}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "polyboard_refresh_duration_seconds",
			Help:    "Wall time of a full refresh cycle.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		GammaPages: factory.NewCounter(prometheus.CounterOpts{
			Name: "polyboard_gamma_pages_fetched_total",
			Help: "Gamma API event pages fetched.",
		}),
		RewardsPages: factory.NewCounter(prometheus.CounterOpts{
			Name: "polyboard_rewards_pages_scraped_total",
			Help: "Rewards pages rendered and scraped.",
		}),
		SkippedRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "polyboard_skipped_records_total",
			Help: "Malformed upstream market records skipped.",
		}),
		MarketsServed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "polyboard_markets_served",
			Help: "Markets in the currently published snapshot.",
		}),
		SnapshotVersion: factory.NewGauge(prometheus.GaugeOpts{
			Name: "polyboard_snapshot_version",
			Help: "Version of the currently published snapshot.",
		}),
	}
}
