// Package metrics provides the centralized Prometheus registry for the
// httpwalk client. All metrics are defined in their owning packages
// (client, paginate) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - httpwalk_requests_total{status} (Counter): Orchestrated requests by final HTTP status
//   - httpwalk_request_duration_seconds (Histogram): Wall time of one fetch including redirects and retries
//   - httpwalk_redirects_total{status} (Counter): Manually followed redirects by 3xx status
//
// Retry Metrics (pkg/client):
//   - httpwalk_retries_total{status} (Counter): Retry attempts by triggering status
//   - httpwalk_retry_wait_seconds (Histogram): Wait duration before each retry
//   - httpwalk_retries_exhausted_total (Counter): Requests returned after the retry budget ran out
//
// Pagination Metrics (pkg/paginate):
//   - httpwalk_pages_fetched_total (Counter): Pages fetched across pagination walks
//
// Example Prometheus Queries:
//
//   # Retry Rate
//   rate(httpwalk_retries_total[5m]) / rate(httpwalk_requests_total[5m])
//
//   # Exhaustion Ratio
//   rate(httpwalk_retries_exhausted_total[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(httpwalk_request_duration_seconds_bucket[5m]))
