package observability

import (
	"errors"
	"strings"

	"letsblog/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperations counts content store operations by operation and outcome.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letsblog_store_operations_total",
		Help: "Total number of content store operations by outcome",
	}, []string{"operation", "outcome"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letsblog_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// WebSocketConnections is the gauge of active snapshot stream connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "letsblog_websocket_connections",
		Help: "Number of active WebSocket snapshot connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letsblog_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})

	// SnapshotsPublished counts snapshots pushed to the view layer by sink.
	SnapshotsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letsblog_snapshots_published_total",
		Help: "Total number of store snapshots published by sink",
	}, []string{"sink"})
)

// Outcome labels an operation result: "ok" or the lower-cased error code.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}

// RecordStoreOperation increments the store operation counter.
func RecordStoreOperation(operation string, err error) {
	StoreOperations.WithLabelValues(operation, Outcome(err)).Inc()
}
