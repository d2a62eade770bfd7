package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/provider-paging/pkg/metrics"
)

var (
	// CacheHits tracks cache hits by layer (redis)
	CacheHits = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "paging_cache_hits_total",
			Help: "Total number of page cache hits",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.With(metrics.Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "paging_cache_misses_total",
			Help: "Total number of page cache misses",
		},
	)

	// CacheWrittenBytes counts bytes written to the cache by layer.
	// Expired and invalidated entries are not subtracted.
	CacheWrittenBytes = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "paging_cache_written_bytes_total",
			Help: "Total bytes written to the page cache",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "paging_cache_errors_total",
			Help: "Total number of page cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "invalidate"
	)
)
