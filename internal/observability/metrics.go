// Package observability provides logging, metrics, and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_error_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ActiveSubscriptions is the gauge of live feed registrations per topic.
	ActiveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "agora_feed_active_subscriptions",
		Help: "Number of live feed subscriptions per topic",
	}, []string{"topic_id"})

	// SnapshotsDelivered counts feed snapshots delivered to subscribers.
	SnapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_feed_snapshots_delivered_total",
		Help: "Total number of feed snapshots delivered to subscribers",
	}, []string{"topic_id"})

	// SnapshotsCoalesced counts stale snapshots replaced before delivery.
	SnapshotsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_feed_snapshots_coalesced_total",
		Help: "Total number of stale feed snapshots replaced by a newer one before delivery",
	})

	// ActiveWebSockets is the gauge of open websocket connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agora_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
