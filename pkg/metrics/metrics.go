package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// prefix of domain counters; transport and client series keep OTel-style names
const namespace = "applicants"

var (
	// Registry is served at /api/metrics. A dedicated registry keeps test
	// binaries free of duplicate-registration panics from the default one.
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// Buckets from a few milliseconds up to slow spreadsheet imports
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34, 55}

	httpLabels = []string{"http_request_method", "http_route", "http_response_status_code"}
)

func counter(ns, name, help string, labels ...string) *prometheus.CounterVec {
	return factory.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: name, Help: help}, labels)
}

func histogram(ns, name, help string, labels ...string) *prometheus.HistogramVec {
	return factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: name, Help: help, Buckets: CustomAPIBuckets,
	}, labels)
}

func gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	return factory.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
}

// HTTP server
var (
	HTTPRequestDuration = histogram("", "http_server_request_duration_seconds", "HTTP request duration in seconds", httpLabels...)
	HTTPRequestTotal    = counter("", "http_server_request_total", "Total number of HTTP requests", httpLabels...)
	ActiveRequests      = gauge("http_server_active_requests", "Number of active HTTP requests", "http_request_method")
	RateLimitedRequests = counter("", "http_server_rate_limited_total", "Requests rejected by a per-client rate limiter", "limiter")
)

// Clients: Postgres, archive bucket, outbound HTTP
var (
	DBOperationDuration = histogram("", "db_client_operation_duration_seconds", "Database client operation duration in seconds", "operation", "status")
	DBOperationTotal    = counter("", "db_client_operation_total", "Total number of database client operations", "operation", "status")

	StorageOperationDuration = histogram("", "storage_client_operation_duration_seconds", "Archive storage operation duration in seconds", "operation", "status")
	StorageOperationTotal    = counter("", "storage_client_operation_total", "Total number of archive storage operations", "operation", "status")

	OutboundRequests        = counter("", "http_client_requests_total", "Outbound HTTP requests by downstream service and status", "service", "status")
	OutboundRequestDuration = histogram("", "http_client_request_duration_seconds", "Outbound HTTP request duration in seconds", "service")

	// 0 closed, 1 half-open, 2 open
	CircuitBreakerState = gauge("circuit_breaker_state", "Circuit breaker state per dependency", "breaker")
)

// Catalog cache
var (
	CacheHits   = counter("", "cache_hits_total", "Total number of cache hits", "cache_name")
	CacheMisses = counter("", "cache_misses_total", "Total number of cache misses", "cache_name")
	CacheSize   = gauge("cache_entries", "Number of entries in cache", "cache_name")
)

// Applicant workflow
var (
	FormSubmissions      = counter(namespace, "form_submissions_total", "Application form submissions by outcome", "outcome")
	FormUpdates          = counter(namespace, "form_updates_total", "Admin form updates by outcome", "outcome")
	ImportRows           = counter(namespace, "import_rows_total", "Imported rows by outcome", "outcome")
	ImportBatchDuration  = histogram(namespace, "import_batch_duration_seconds", "Duration of a whole import batch", "source")
	Exports              = counter(namespace, "exports_total", "Spreadsheet exports", "status")
	CaptchaVerifications = counter(namespace, "captcha_verifications_total", "Captcha checks of public submissions", "status")
	AdminLogins          = counter(namespace, "admin_logins_total", "Admin login attempts", "status")
	AdminRegistrations   = counter(namespace, "admin_registrations_total", "Admin registration attempts", "status")
)

// Init registers runtime collectors and a service_info series labelled
// with the service name. Call once from main.
func Init(serviceName string) {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "service_info",
			Help:        "Static service information",
			ConstLabels: prometheus.Labels{"service_name": serviceName},
		}, func() float64 { return 1 }),
	)
}

// MeasureDuration returns seconds elapsed since start
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// Outcome maps an error to the status label used by counters
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
