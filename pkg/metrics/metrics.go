package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifiq_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// LiveSubscriptions tracks open live queries across all connections.
	LiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifiq_live_subscriptions",
			Help: "Number of open live subscriptions",
		},
	)

	// StreamConnections tracks connected realtime clients.
	StreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifiq_stream_connections",
			Help: "Number of connected stream clients",
		},
	)

	// Uploads counts image uploads by result (success|rejected|failure).
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifiq_uploads_total",
			Help: "Total number of image uploads",
		},
		[]string{"result"},
	)

	// Rewrites counts AI rewrite calls by tone and result.
	Rewrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifiq_rewrites_total",
			Help: "Total number of AI rewrite requests",
		},
		[]string{"tone", "result"},
	)

	// Emails counts contact relay sends by result.
	Emails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifiq_emails_total",
			Help: "Total number of contact emails relayed",
		},
		[]string{"result"},
	)

	// AuthAttempts records authentication attempts by method and result.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifiq_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)
)
