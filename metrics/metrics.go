// Package metrics exposes prometheus metrics for the image cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks requests served from a fresh local copy
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagecache_hits_total",
		Help: "Number of requests served from a fresh cached file",
	})

	// CacheMisses tracks requests that required an upstream fetch
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagecache_misses_total",
		Help: "Number of requests with no usable cached file",
	})

	// StaleServes tracks requests answered with a stale cached copy
	StaleServes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagecache_stale_serves_total",
		Help: "Number of requests served a stale cached file",
	})

	// CoalescedRequests tracks resolve calls that attached to an
	// in-flight fetch for the same URL instead of starting their own
	CoalescedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagecache_coalesced_requests_total",
		Help: "Number of resolve calls coalesced into an in-flight fetch",
	})

	// FetchErrors tracks upstream fetch failures by classification
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagecache_fetch_errors_total",
		Help: "Total number of upstream fetch failures",
	}, []string{"reason"})

	// BackgroundRefreshes tracks background refresh outcomes
	BackgroundRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagecache_background_refreshes_total",
		Help: "Total number of background refresh attempts",
	}, []string{"result"})

	// MappingConflicts tracks rejected conflicting mapping writes
	MappingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagecache_mapping_conflicts_total",
		Help: "Number of mapping writes rejected due to a filename conflict",
	})

	// KnownMappings tracks the number of URL mappings in the store
	KnownMappings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "imagecache_known_mappings",
		Help: "Number of source URLs with a recorded local file",
	})

	// CircuitBreakerState tracks the breaker state per upstream host
	// 0=closed, 1=open, 2=half-open
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "imagecache_circuit_breaker_state",
		Help: "Current state of the upstream circuit breaker (0=closed, 1=open, 2=half-open)",
	}, []string{"host"})
)

// Fetch error reason labels
const (
	ReasonUnsupportedScheme = "unsupported_scheme"
	ReasonUpstreamStatus    = "upstream_status"
	ReasonTimeout           = "timeout"
	ReasonCircuitOpen       = "circuit_open"
	ReasonTransport         = "transport"
)

// Background refresh result labels
const (
	RefreshOK     = "ok"
	RefreshFailed = "failed"
)

// RecordFetchError increments the fetch error counter for a reason
func RecordFetchError(reason string) {
	FetchErrors.WithLabelValues(reason).Inc()
}

// RecordBackgroundRefresh increments the background refresh counter
func RecordBackgroundRefresh(result string) {
	BackgroundRefreshes.WithLabelValues(result).Inc()
}

// SetCircuitBreakerState updates the circuit breaker state metric
// state should be one of: "CLOSED" (0), "OPEN" (1), "HALF-OPEN" (2)
func SetCircuitBreakerState(host, state string) {
	var value float64
	switch state {
	case "CLOSED":
		value = 0
	case "OPEN":
		value = 1
	case "HALF-OPEN":
		value = 2
	}
	CircuitBreakerState.WithLabelValues(host).Set(value)
}
