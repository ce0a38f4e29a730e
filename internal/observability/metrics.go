package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	uploadRequestsTotal  *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
	uploadLatencySeconds prometheus.Histogram

	notificationsPublishedTotal *prometheus.CounterVec
	eventsPublishedTotal        *prometheus.CounterVec

	vectorCacheLookupsTotal *prometheus.CounterVec
	treeCacheLookupsTotal   *prometheus.CounterVec
	contentPromotionsTotal  prometheus.Counter
	submissionsTotal        *prometheus.CounterVec
	paymentNotifications    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lms_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_upload_requests_total",
			Help: "Stored uploads grouped by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_upload_rejected_total",
			Help: "Rejected uploads grouped by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lms_upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		notificationsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_notifications_published_total",
			Help: "Notifications created grouped by type.",
		}, []string{"type"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_events_published_total",
			Help: "Domain events published to the message bus.",
		}, []string{"event", "outcome"})

		vectorCacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_vector_search_cache_total",
			Help: "Vector search cache lookups grouped by result.",
		}, []string{"result"})

		treeCacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_content_tree_cache_total",
			Help: "Content tree cache lookups grouped by result.",
		}, []string{"result"})

		contentPromotionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lms_content_promotions_total",
			Help: "Scheduled content nodes promoted to published.",
		})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_submission_transitions_total",
			Help: "Submission state transitions grouped by kind and target status.",
		}, []string{"kind", "status"})

		paymentNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_payment_notifications_total",
			Help: "Payment gateway notifications grouped by resulting invoice status.",
		}, []string{"status"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatencySeconds,
			notificationsPublishedTotal, eventsPublishedTotal,
			vectorCacheLookupsTotal, treeCacheLookupsTotal, contentPromotionsTotal, submissionsTotal, paymentNotifications,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// UploadRequests counts stored uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency observes upload processing time.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// NotificationsPublishedTotal counts created notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedTotal
}

// EventsPublished counts bus publications.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// VectorCacheLookups counts cache hits and misses of the vector search cache.
func VectorCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return vectorCacheLookupsTotal
}

// TreeCacheLookups counts cache hits and misses of the content tree cache.
func TreeCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return treeCacheLookupsTotal
}

// ContentPromotions counts scheduled publishes applied by the promoter.
func ContentPromotions() prometheus.Counter {
	RegisterMetrics()
	return contentPromotionsTotal
}

// SubmissionTransitions counts submission status changes.
func SubmissionTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// PaymentNotifications counts processed gateway notifications.
func PaymentNotifications() *prometheus.CounterVec {
	RegisterMetrics()
	return paymentNotifications
}
