// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stemweb_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stemweb_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostOperations counts post mutations by operation and outcome.
	PostOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stemweb_post_operations_total",
		Help: "Total number of post operations by type and outcome",
	}, []string{"operation", "outcome"})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stemweb_cache_lookups_total",
		Help: "Cache-aside lookups by result",
	}, []string{"result"})

	// AuthEvents counts token issue, refresh and rejection events.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stemweb_auth_events_total",
		Help: "Authentication events by type",
	}, []string{"event"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordPostOperation increments the post operation counter.
func RecordPostOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	PostOperations.WithLabelValues(operation, outcome).Inc()
}
