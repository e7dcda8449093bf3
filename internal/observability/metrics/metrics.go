package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "classtrack_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_logins_total",
		Help: "Login attempts by identity domain and result",
	}, []string{"domain", "result"})

	gradesSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_grades_saved_total",
		Help: "Grades written, by entry mode (single or bulk)",
	}, []string{"mode"})

	bulkEntriesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_bulk_grade_entries_rejected_total",
		Help: "Bulk grade entries rejected per-row by the server",
	})

	activeSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "classtrack_active_sessions",
		Help: "Live server-side session records by identity domain",
	}, []string{"domain"})

	sessionSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_session_sweep_operations_total",
		Help: "Count of session sweeper operations by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveLogin records a login attempt for a domain with a result label.
func ObserveLogin(domain, result string) {
	loginsTotal.WithLabelValues(domain, result).Inc()
}

// ObserveGradesSaved counts persisted grades for an entry mode.
func ObserveGradesSaved(mode string, count int) {
	gradesSaved.WithLabelValues(mode).Add(float64(count))
}

// ObserveBulkRejected counts per-row bulk rejections.
func ObserveBulkRejected(count int) {
	bulkEntriesRejected.Add(float64(count))
}

// SessionOpened increments the active session gauge for a domain.
func SessionOpened(domain string) {
	activeSessions.WithLabelValues(domain).Inc()
}

// SessionClosed decrements the active session gauge for a domain.
func SessionClosed(domain string) {
	activeSessions.WithLabelValues(domain).Dec()
}

// ObserveSessionSweep increments the sweeper counter for a result.
func ObserveSessionSweep(result string) {
	sessionSweeps.WithLabelValues(result).Inc()
}
