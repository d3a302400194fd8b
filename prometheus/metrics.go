package prometheus

import (
	"time"

	"github.com/ipeterlow/labdopingv2/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Permission metrics
	PermissionDeniedCounter prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Sample workflow metrics
	SampleOperationsCounter   prometheus.CounterVec
	DocumentOperationsCounter prometheus.CounterVec
	ExportOperationsCounter   prometheus.CounterVec

	// Samples currently in process (status 1, 3, 5) per type
	SamplesInProcessGauge prometheus.GaugeVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(cfg *config.Config) {
	prefix := cfg.Metrics.Prefix

	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	PermissionDeniedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_permission_denied_total",
			Help: "Total number of requests rejected by the permission gate",
		},
	)

	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	SampleOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_sample_operations_total",
			Help: "Total number of sample workflow operations",
		},
		[]string{"operation"},
	)

	DocumentOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_document_operations_total",
			Help: "Total number of document operations",
		},
		[]string{"operation"},
	)

	ExportOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_export_operations_total",
			Help: "Total number of export operations",
		},
		[]string{"format", "sample_type"},
	)

	SamplesInProcessGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_samples_in_process",
			Help: "Number of samples currently in process per type",
		},
		[]string{"sample_type"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordSampleOperation increments the counter for sample workflow operations
func RecordSampleOperation(operation string) {
	SampleOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordDocumentOperation increments the counter for document operations
func RecordDocumentOperation(operation string) {
	DocumentOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordExport increments the counter for export operations
func RecordExport(format, sampleType string) {
	ExportOperationsCounter.WithLabelValues(format, sampleType).Inc()
}

// UpdateSamplesInProcess updates the in-process gauge for a sample type
func UpdateSamplesInProcess(sampleType string, count int) {
	SamplesInProcessGauge.WithLabelValues(sampleType).Set(float64(count))
}
