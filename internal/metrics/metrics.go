// Package metrics registers the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdateCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clmm_adapter_update_cycles_total",
		Help: "Completed pool refresh cycles",
	})

	UpdateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clmm_adapter_update_failures_total",
		Help: "Refresh cycles that aborted without touching the mirror",
	}, []string{"reason"})

	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clmm_adapter_update_duration_seconds",
		Help:    "Wall time of one refresh cycle, fetch included",
		Buckets: prometheus.DefBuckets,
	})

	QuoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clmm_adapter_quote_requests_total",
		Help: "Quote requests served, by outcome",
	}, []string{"status"})

	QuoteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clmm_adapter_quote_duration_seconds",
		Help:    "Latency of quote computation against the mirror",
		Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12),
	})

	TrackedPools = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clmm_adapter_tracked_pools",
		Help: "Pools currently registered for refresh",
	})
)
