// Package metrics exposes the Prometheus registry used by the Graph API
// client. Metrics are defined in their respective packages (client,
// cache, ratelimit, pagination) and registered via promauto on the
// default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registerer used by the client.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the default Prometheus gatherer, paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Names lists every metric the client packages register.
var Names = []string{
	// pkg/client
	"scholars_requests_total",
	"scholars_request_duration_seconds",
	"scholars_errors_total",
	"scholars_retries_total",
	"scholars_retry_backoff_seconds",
	"scholars_retry_exhausted_total",

	// pkg/cache
	"scholars_cache_hits_total",
	"scholars_cache_misses_total",
	"scholars_cache_size_bytes",
	"scholars_cache_errors_total",

	// pkg/ratelimit
	"scholars_ratelimit_cooldown_seconds",
	"scholars_ratelimit_cooldowns_total",
	"scholars_ratelimit_cooldown_waits_total",

	// pkg/pagination
	"scholars_pagination_pages_total",
	"scholars_pagination_items_total",
	"scholars_pagination_page_errors_total",
	"scholars_pagination_iterations_finished_total",
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - scholars_requests_total{endpoint, status} (Counter): Requests by endpoint label and HTTP status, cache_hit or network_error
//   - scholars_request_duration_seconds{endpoint} (Histogram): Request duration including retries
//   - scholars_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - scholars_retries_total{error_class} (Counter): Retry attempts by error class
//   - scholars_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - scholars_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - scholars_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - scholars_cache_misses_total (Counter): Cache misses
//   - scholars_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - scholars_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - scholars_ratelimit_cooldown_seconds (Gauge): Length of the most recent 429 cooldown
//   - scholars_ratelimit_cooldowns_total (Counter): Cooldowns started by 429 responses
//   - scholars_ratelimit_cooldown_waits_total (Counter): Requests delayed by a cooldown
//
// Pagination Metrics (pkg/pagination):
//   - scholars_pagination_pages_total{endpoint} (Counter): Pages fetched
//   - scholars_pagination_items_total{endpoint} (Counter): Items received
//   - scholars_pagination_page_errors_total{endpoint} (Counter): Failed page fetches
//   - scholars_pagination_iterations_finished_total{endpoint, reason} (Counter): Iterations ended by cap, ceiling, last_page or empty_page
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(scholars_cache_hits_total[5m])) /
//   (sum(rate(scholars_cache_hits_total[5m])) + sum(rate(scholars_cache_misses_total[5m])))
//
//   # 429 Pressure
//   rate(scholars_ratelimit_cooldowns_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(scholars_request_duration_seconds_bucket[5m]))
//
//   # Items per Page
//   rate(scholars_pagination_items_total[5m]) / rate(scholars_pagination_pages_total[5m])
