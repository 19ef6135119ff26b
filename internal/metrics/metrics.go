package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "json4ai_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "json4ai_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AuthEventsTotal mirrors the hourly redis counters shown on the admin console.
	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "json4ai_auth_events_total",
			Help: "Authentication lifecycle events",
		},
		[]string{"event"},
	)

	QuotaDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "json4ai_quota_decisions_total",
			Help: "Prompt quota reservations by tier and outcome",
		},
		[]string{"tier", "outcome"},
	)

	AdminSessionsRevokedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "json4ai_admin_sessions_revoked_total",
			Help: "Admin sessions revoked by a newer login or logout",
		},
	)

	TasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "json4ai_tasks_processed_total",
			Help: "Background tasks handled by the worker",
		},
		[]string{"type", "status"},
	)
)

func RecordHTTPRequest(method, route, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func RecordAuthEvent(event string) {
	AuthEventsTotal.WithLabelValues(event).Inc()
}

func RecordQuotaDecision(tier string, allowed bool) {
	outcome := "rejected"
	if allowed {
		outcome = "admitted"
	}
	QuotaDecisionsTotal.WithLabelValues(tier, outcome).Inc()
}

func RecordTask(taskType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	TasksProcessedTotal.WithLabelValues(taskType, status).Inc()
}
