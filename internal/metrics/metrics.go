package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	jobEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "job_events_total",
			Help:      "Job lifecycle events published on the bus.",
		},
		[]string{"event"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, notifications, jobEvents)
	})
}

// IncHTTP increments the request counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncNotification records a delivery attempt outcome for a channel.
func IncNotification(channel, outcome string) {
	notifications.WithLabelValues(channel, outcome).Inc()
}

// IncJobEvent counts a published job lifecycle event.
func IncJobEvent(event string) {
	jobEvents.WithLabelValues(event).Inc()
}
