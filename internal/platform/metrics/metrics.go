package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersCreated          *prometheus.CounterVec
	NumbersAllocated      *prometheus.CounterVec
	LinkageRetries        prometheus.Counter
	VerificationSubmitted prometheus.Counter
	VerificationDecided   *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carelink_users_created_total",
			Help: "Total number of users registered, by role",
		}, []string{"role"}),
		NumbersAllocated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carelink_numbers_allocated_total",
			Help: "Total readable numbers allocated, by namespace",
		}, []string{"namespace"}),
		LinkageRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carelink_linkage_retries_total",
			Help: "Optimistic retries while reconciling denormalized child numbers",
		}),
		VerificationSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carelink_verification_submitted_total",
			Help: "Verification requests submitted",
		}),
		VerificationDecided: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carelink_verification_decided_total",
			Help: "Verification decisions applied, by outcome",
		}, []string{"outcome"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carelink_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
