package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kuberun_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"kind", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kuberun_run_duration_seconds",
			Help:    "Time taken for a pipeline run from create to terminal status",
			Buckets: prometheus.ExponentialBuckets(1, 2, 15), // 1s to ~8 hours
		},
		[]string{"kind", "status"},
	)

	// Watch metrics
	WatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kuberun_watch_outcomes_total",
			Help: "Total number of watch-waits by terminal state",
		},
		[]string{"kind", "outcome"},
	)

	WatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kuberun_watch_duration_seconds",
			Help:    "Time spent waiting for a condition",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 16), // 100ms to ~1.8 hours
		},
		[]string{"kind"},
	)

	// Log metrics
	LogBytesCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kuberun_log_bytes_collected_total",
			Help: "Total bytes of container logs collected",
		},
	)

	// Cluster call metrics
	ClusterCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kuberun_cluster_calls_total",
			Help: "Total number of cluster API calls",
		},
		[]string{"verb", "kind", "result"},
	)

	// API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kuberun_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kuberun_api_request_duration_seconds",
			Help:    "API request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Process metrics (for the resource monitor)
	ProcessCPUUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kuberun_process_cpu_usage_percent",
			Help: "Current CPU usage percentage of the kuberun process",
		},
	)

	ProcessMemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kuberun_process_memory_usage_bytes",
			Help: "Current memory usage of the kuberun process in bytes",
		},
	)

	ProcessGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kuberun_process_goroutines",
			Help: "Current number of goroutines",
		},
	)
)

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRun records a completed pipeline run
func RecordRun(kind, status string, duration float64) {
	RunsTotal.WithLabelValues(kind, status).Inc()
	RunDuration.WithLabelValues(kind, status).Observe(duration)
}

// RecordWatchOutcome records the terminal state of a watch-wait
func RecordWatchOutcome(kind, outcome string, duration float64) {
	WatchOutcomes.WithLabelValues(kind, outcome).Inc()
	WatchDuration.WithLabelValues(kind).Observe(duration)
}

// RecordLogBytes records collected log volume
func RecordLogBytes(n int) {
	LogBytesCollected.Add(float64(n))
}

// RecordClusterCall records a cluster API call result
func RecordClusterCall(verb, kind string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	ClusterCalls.WithLabelValues(verb, kind, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string) {
	APIRequests.WithLabelValues(method, endpoint, statusCode).Inc()
}

// RecordAPIRequestDuration records the duration of an API request
func RecordAPIRequestDuration(method, endpoint string, duration float64) {
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// UpdateProcessResourceUsage updates process resource usage gauges
func UpdateProcessResourceUsage(cpuPercent, memoryBytes float64, goroutines int) {
	ProcessCPUUsage.Set(cpuPercent)
	ProcessMemoryUsage.Set(memoryBytes)
	ProcessGoroutines.Set(float64(goroutines))
}
