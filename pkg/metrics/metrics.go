// Package metrics serves the Prometheus metrics of the REE loader.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, fetch, storage) to maintain modularity and avoid circular
// dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default gatherer in the Prometheus text format. Every
// ree_* metric is registered there through promauto.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - ree_requests_total{host, status} (Counter): Requests by host and HTTP status ("cache", "network_error" included)
//   - ree_request_duration_seconds{host} (Histogram): Request duration by host
//   - ree_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - ree_retries_total{error_class} (Counter): Retry attempts by error class
//   - ree_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - ree_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - ree_cache_hits_total (Counter): Cache hits
//   - ree_cache_misses_total (Counter): Cache misses
//   - ree_cache_stored_bytes_total (Counter): Bytes written to the cache
//   - ree_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - ree_rate_limit_waits_total (Counter): Requests that waited for a token
//   - ree_rate_limit_wait_seconds (Histogram): Time spent waiting
//
// Batch Metrics (pkg/fetch):
//   - ree_batch_duration_seconds{variant} (Histogram): Batch duration (flat, generation)
//   - ree_descriptor_results_total{variant, outcome} (Counter): ok, non_ok, error
//
// Storage Metrics (pkg/storage):
//   - ree_db_rows_inserted_total{table} (Counter): Rows committed by table
//   - ree_db_insert_duration_seconds{table} (Histogram): Insert transaction duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(ree_cache_hits_total[5m])) /
//   (sum(rate(ree_cache_hits_total[5m])) + sum(rate(ree_cache_misses_total[5m])))
//
//   # Share of empty slots per batch variant
//   sum by (variant) (rate(ree_descriptor_results_total{outcome="non_ok"}[1h]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(ree_request_duration_seconds_bucket[5m]))
