package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gopresence_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gopresence_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Connection metrics
	OpenConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gopresence_open_connections",
			Help: "Currently open websocket connections",
		},
	)

	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gopresence_online_users",
			Help: "Users currently bound to a live connection",
		},
	)

	SessionsReplaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gopresence_sessions_replaced_total",
			Help: "Registrations that replaced an older connection of the same user",
		},
	)

	Evictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gopresence_evictions_total",
			Help: "Connections closed because their send queue was full",
		},
	)

	// Delivery metrics
	PresenceBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gopresence_presence_broadcasts_total",
			Help: "Presence snapshots pushed to all open connections",
		},
	)

	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gopresence_messages_relayed_total",
			Help: "Messages pushed to a live recipient",
		},
	)

	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gopresence_messages_dropped_total",
			Help: "Messages that could not be pushed",
		},
		[]string{"reason"}, // "offline" or "queue_full"
	)

	InvalidFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gopresence_invalid_frames_total",
			Help: "Inbound frames rejected by decoding or validation",
		},
		[]string{"reason"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gopresence_rate_limit_hits_total",
			Help: "Inbound frames discarded by the per-connection rate limiter",
		},
	)
)
