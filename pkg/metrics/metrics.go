package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Business metrics
	ActiveSessionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_sessions_total",
			Help: "Current number of in-progress activity sessions",
		},
		[]string{"service"},
	)

	SamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_samples_total",
			Help: "Total number of location samples by acceptance result",
		},
		[]string{"service", "result"},
	)

	SessionsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_completed_total",
			Help: "Total number of completed activity sessions",
		},
		[]string{"service", "activity"},
	)

	SnapshotFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_snapshot_failures_total",
			Help: "Total number of failed session snapshot writes",
		},
		[]string{"service"},
	)

	SummaryPublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summary_publish_failures_total",
			Help: "Total number of failed summary publications to the broker",
		},
		[]string{"service"},
	)

	// WebSocket metrics
	WebsocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of open WebSocket connections",
		},
		[]string{"service"},
	)
)

// RecordHTTPMetrics records count and duration for one served request.
func RecordHTTPMetrics(service, method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	HttpRequestsTotal.WithLabelValues(service, method, path, statusStr).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, statusStr).Observe(duration.Seconds())
}
