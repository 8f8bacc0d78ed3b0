// Package metrics exposes the Prometheus registry shared by the proxy.
// All metrics are defined in their respective packages (cache, client, proxy)
// to maintain modularity and avoid circular dependencies.
//
// This package provides the scrape handler and a reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the proxy.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the /metrics scrape handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - ttb_cache_hits_total{namespace} (Counter): Cache hits by key namespace
//   - ttb_cache_misses_total{namespace} (Counter): Cache misses by key namespace
//   - ttb_cache_stores_total{namespace} (Counter): Responses written to the cache
//   - ttb_cache_stored_bytes_total (Counter): Bytes written to the cache
//   - ttb_cache_errors_total{operation} (Counter): Cache operation errors (get, set, stats)
//
// Upstream Metrics (pkg/client):
//   - ttb_upstream_requests_total{endpoint, status} (Counter): Upstream calls by endpoint and status or failure class
//   - ttb_upstream_request_duration_seconds{endpoint} (Histogram): Upstream call duration
//   - ttb_upstream_errors_total{class} (Counter): Failures by class (network, timeout, malformed)
//
// Proxy Metrics (pkg/proxy):
//   - ttb_proxy_responses_total{cache_status} (Counter): Responses by cache status (HIT, MISS, BYPASS, error, rejected)
//   - ttb_proxy_cors_rejections_total (Counter): Requests refused for a foreign Origin
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(ttb_cache_hits_total[5m])) /
//   (sum(rate(ttb_cache_hits_total[5m])) + sum(rate(ttb_cache_misses_total[5m])))
//
//   # Upstream Failure Rate
//   sum(rate(ttb_upstream_errors_total[5m])) by (class)
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(ttb_upstream_request_duration_seconds_bucket[5m]))
