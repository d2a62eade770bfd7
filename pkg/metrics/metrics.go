// Package metrics provides the Prometheus registry and /metrics handler shared by the paging packages.
// All metrics are defined in their respective packages (paging, cache, client, provider)
// to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every paging package hands to promauto.With.
// It is the default registerer, so Handler exposes everything they define.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source the /metrics handler reads from.
var Gatherer = prometheus.DefaultGatherer

// Names lists every metric family the paging packages export.
var Names = []string{
	"paging_requests_total",
	"paging_results_total",
	"paging_offset",
	"paging_fetch_duration_seconds",
	"paging_cache_hits_total",
	"paging_cache_misses_total",
	"paging_cache_written_bytes_total",
	"paging_cache_errors_total",
	"paging_client_requests_total",
	"paging_client_request_duration_seconds",
	"paging_client_errors_total",
	"paging_client_retries_total",
	"paging_client_retry_backoff_seconds",
	"paging_client_retry_exhausted_total",
	"paging_provider_requests_total",
	"paging_provider_request_duration_seconds",
	"paging_provider_records_served_total",
}

// Handler serves Gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Missing returns the names that g has no samples for, sorted.
// Vector metrics only appear once a label combination has been observed.
func Missing(g prometheus.Gatherer, names ...string) ([]string, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(families))
	for _, mf := range families {
		seen[mf.GetName()] = true
	}

	var missing []string
	for _, name := range names {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// Metrics Documentation
//
// Fetcher Metrics (pkg/paging):
//   - paging_requests_total{trigger} (Counter): Page requests issued ("initial", "scroll")
//   - paging_results_total{outcome} (Counter): Completions ("accepted", "empty", "stale", "error")
//   - paging_offset (Gauge): Read offset of the most recently updated fetcher
//   - paging_fetch_duration_seconds (Histogram): Data source call duration
//
// Cache Metrics (pkg/cache):
//   - paging_cache_hits_total{layer="redis"} (Counter): Page cache hits
//   - paging_cache_misses_total (Counter): Page cache misses
//   - paging_cache_written_bytes_total{layer="redis"} (Counter): Bytes written to the cache
//   - paging_cache_errors_total{operation} (Counter): Cache operation errors
//
// Client Metrics (pkg/client):
//   - paging_client_requests_total{status} (Counter): Provider requests by HTTP status
//   - paging_client_request_duration_seconds (Histogram): FetchPage duration, retries included
//   - paging_client_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//   - paging_client_retries_total{error_class} (Counter): Retry attempts
//   - paging_client_retry_backoff_seconds{error_class} (Histogram): Backoff before each retry
//   - paging_client_retry_exhausted_total{error_class} (Counter): Requests that used every attempt
//
// Provider Metrics (pkg/provider):
//   - paging_provider_requests_total{route, status} (Counter): HTTP requests served
//   - paging_provider_request_duration_seconds{route} (Histogram): HTTP handling time
//   - paging_provider_records_served_total (Counter): Records returned in page responses
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(paging_cache_hits_total[5m])) /
//   (sum(rate(paging_cache_hits_total[5m])) + sum(rate(paging_cache_misses_total[5m])))
//
//   # Share of superseded page loads
//   rate(paging_results_total{outcome="stale"}[5m]) / rate(paging_requests_total[5m])
//
//   # P95 Provider Latency
//   histogram_quantile(0.95, rate(paging_provider_request_duration_seconds_bucket[5m]))
