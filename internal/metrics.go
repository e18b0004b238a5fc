package portfolio_contact

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status_code"},
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submissions by outcome (accepted or the rejection kind)",
		},
		[]string{"result"},
	)

	emailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_emails_total",
			Help: "Outbound emails by kind (admin, auto_reply) and status",
		},
		[]string{"kind", "status"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_rate_limited_total",
			Help: "Submissions refused by the per-IP cooldown",
		},
	)

	newsletterSignupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_newsletter_signups_total",
			Help: "Accepted submissions that opted into the newsletter",
		},
	)

	rateLimitPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_rate_limit_pruned_total",
			Help: "Rate-limit entries removed by maintenance",
		},
	)

	logRotationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_log_rotations_total",
			Help: "Log files rotated by maintenance",
		},
	)
)

func recordSubmission(result string) {
	submissionsTotal.WithLabelValues(result).Inc()
}

func recordEmail(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	emailsTotal.WithLabelValues(kind, status).Inc()
}
