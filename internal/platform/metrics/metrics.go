// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinic_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	LiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clinic_live_connections",
			Help: "Open live channel connections",
		},
		[]string{"role"},
	)

	LiveMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_live_messages_published_total",
			Help: "Live channel messages published",
		},
		[]string{"type"},
	)

	// LiveMessagesDropped counts messages skipped because a client's send
	// buffer was full.
	LiveMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_live_messages_dropped_total",
			Help: "Live channel messages dropped for slow clients",
		},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limit",
		},
	)

	HandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_http_handler_panics_total",
			Help: "Handler panics turned into 500 responses",
		},
		[]string{"route"},
	)

	RelayErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_live_relay_errors_total",
			Help: "Redis relay failures",
		},
		[]string{"op"}, // op: publish, decode
	)
)

func RecordHTTPRequestDuration(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func IncrementLiveMessage(msgType string) {
	LiveMessagesPublished.WithLabelValues(msgType).Inc()
}

func IncrementRateLimited() {
	RateLimited.Inc()
}

func IncrementPanic(route string) {
	HandlerPanics.WithLabelValues(route).Inc()
}

func IncrementRelayError(op string) {
	RelayErrors.WithLabelValues(op).Inc()
}

// Handler serves the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
