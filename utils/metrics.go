package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors shared by middleware and controllers.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebox_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filebox_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// FileOpsTotal counts upload/download/delete outcomes.
	FileOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebox_file_operations_total",
			Help: "File operations by kind and result.",
		},
		[]string{"op", "result"},
	)

	UploadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filebox_uploaded_bytes_total",
			Help: "Bytes accepted by successful uploads.",
		},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebox_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)
)

// RecordFileOp increments the file operation counter.
func RecordFileOp(op, result string) {
	FileOpsTotal.WithLabelValues(op, result).Inc()
}
