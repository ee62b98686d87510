// Package metrics provides the centralized Prometheus metrics registry for
// the query controller library. All metrics are defined in their respective
// packages (fetch, query, pagination) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the library.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/fetch):
//   - fetch_requests_total{endpoint, status} (Counter): Page fetches by endpoint and HTTP status
//   - fetch_request_duration_seconds{endpoint} (Histogram): Page fetch duration by endpoint
//   - fetch_errors_total{class} (Counter): Fetch failures by class (client, server, network)
//   - fetch_cancelled_total (Counter): Fetches aborted through their context
//
// Query Controller Metrics (pkg/query):
//   - query_submits_total (Counter): Queries accepted by Submit/SubmitNow
//   - query_fetches_total (Counter): Fetches dispatched for queries
//   - query_skipped_total (Counter): Queries skipped for being below the minimum length
//   - query_superseded_total (Counter): In-flight requests cancelled by a newer query
//   - query_stale_discards_total (Counter): Completions discarded for superseded tokens
//
// Pagination Metrics (pkg/pagination):
//   - pagination_pages_fetched_total (Counter): Pages successfully fetched and appended
//   - pagination_page_errors_total (Counter): Page fetches that failed
//   - pagination_items_accumulated_total (Counter): Items appended to result sets
//   - pagination_requests_skipped_total (Counter): RequestPage calls skipped (pending or exhausted)
//
// Example Prometheus Queries:
//
//   # Debounce effectiveness: fetches per accepted query
//   rate(query_fetches_total[5m]) / rate(query_submits_total[5m])
//
//   # Supersession rate (users typing faster than responses arrive)
//   rate(query_superseded_total[5m])
//
//   # Fetch error rate by class
//   rate(fetch_errors_total[5m])
//
//   # P95 page fetch latency
//   histogram_quantile(0.95, rate(fetch_request_duration_seconds_bucket[5m]))
