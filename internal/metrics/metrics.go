package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "market_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_users_registered_total",
			Help: "Total users registered",
		},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"result"}, // "success" or "invalid"
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_messages_sent_total",
			Help: "Total messages sent",
		},
	)

	MessageDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_message_deliveries_total",
			Help: "Realtime message deliveries by channel",
		},
		[]string{"channel"}, // "websocket" or "push"
	)

	PropertiesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_properties_created_total",
			Help: "Total properties listed",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "market_websocket_connections",
			Help: "Open websocket connections",
		},
	)
)
