package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_widget_messages_total",
			Help: "Total number of chat messages handled by the proxy",
		},
		[]string{"outcome"},
	)

	upstreamDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_widget_upstream_duration_seconds",
			Help:    "Webhook round trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	sessionsIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_widget_sessions_issued_total",
			Help: "Number of fresh session cookies issued",
		},
	)

	initOnce sync.Once
)

// Init registers the metrics with the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			messagesTotal,
			upstreamDuration,
			sessionsIssued,
		)
	})
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordMessage records a handled chat message. Outcome is "ok" or the
// upstream error kind ("transport", "status", "format").
func RecordMessage(outcome string, duration time.Duration) {
	messagesTotal.WithLabelValues(outcome).Inc()
	upstreamDuration.Observe(duration.Seconds())
}

// RecordSessionIssued counts a fresh session cookie.
func RecordSessionIssued() {
	sessionsIssued.Inc()
}
