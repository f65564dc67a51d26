package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oberfit_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oberfit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	EnrollmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oberfit_enrollments_total",
			Help: "Enrollment attempts by kind (member, visitor) and outcome",
		},
		[]string{"kind", "result"},
	)

	ClassOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oberfit_class_operations_total",
			Help: "Class create/update/delete attempts by outcome",
		},
		[]string{"operation", "result"},
	)

	QuotaRefillsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oberfit_quota_refills_total",
			Help: "Monthly quota refills applied during member enrollment",
		},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oberfit_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordEnrollment counts an enrollment attempt. result is "success" or
// the failure kind.
func RecordEnrollment(kind, result string) {
	EnrollmentsTotal.WithLabelValues(kind, result).Inc()
}

func RecordClassOperation(operation, result string) {
	ClassOperationsTotal.WithLabelValues(operation, result).Inc()
}

func RecordQuotaRefill() {
	QuotaRefillsTotal.Inc()
}

func RecordRateLimited(limiter string) {
	RateLimitedTotal.WithLabelValues(limiter).Inc()
}
