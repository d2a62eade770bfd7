package paging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/provider-paging/pkg/metrics"
)

var (
	pagingRequestsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "paging_requests_total",
		Help: "Total page requests issued by trigger",
	}, []string{"trigger"}) // "initial", "scroll"

	pagingResultsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "paging_results_total",
		Help: "Total page completions by outcome",
	}, []string{"outcome"}) // "accepted", "empty", "stale", "error"

	pagingOffset = promauto.With(metrics.Registry).NewGauge(prometheus.GaugeOpts{
		Name: "paging_offset",
		Help: "Current read offset of the most recently updated fetcher",
	})

	pagingFetchDuration = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "paging_fetch_duration_seconds",
		Help:    "Data source fetch duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
	})
)
