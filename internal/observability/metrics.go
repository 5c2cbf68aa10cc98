// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Recorder metrics
	LogNotifications   prometheus.Counter
	OperationsRecorded *prometheus.CounterVec
	OperationsDropped  *prometheus.CounterVec
	LogEventsArchived  prometheus.Counter

	// Websocket metrics
	WSReconnects prometheus.Counter

	// Latency metrics
	DBQueryDuration *prometheus.HistogramVec

	// Health metrics
	HighestSlotSeen        prometheus.Gauge
	LastOperationTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "spl_transfer_lab"
	}

	return &Metrics{
		LogNotifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "log_notifications_total",
			Help:      "Total number of logsSubscribe notifications received",
		}),
		OperationsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "operations_recorded_total",
			Help:      "Total number of token operations recorded by kind",
		}, []string{"kind"}),
		OperationsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "operations_dropped_total",
			Help:      "Total number of operations not recorded by reason",
		}, []string{"reason"}),
		LogEventsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "log_events_archived_total",
			Help:      "Total number of raw log lines archived",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency by database and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "highest_slot_seen",
			Help:      "Highest slot observed in notifications",
		}),
		LastOperationTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "last_operation_timestamp",
			Help:      "Unix timestamp of the last recorded operation",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation increments the recorded-operations counter for a kind.
func (m *Metrics) RecordOperation(kind string) {
	m.OperationsRecorded.WithLabelValues(kind).Inc()
}

// RecordDrop increments the dropped-operations counter for a reason.
func (m *Metrics) RecordDrop(reason string) {
	m.OperationsDropped.WithLabelValues(reason).Inc()
}

// RecordDBQuery records database query latency.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
}

// UpdateHighestSlot updates the highest slot seen gauge.
func (m *Metrics) UpdateHighestSlot(slot int64) {
	m.HighestSlotSeen.Set(float64(slot))
}
