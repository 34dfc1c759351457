// Package metrics exposes Prometheus collectors for the laborsync service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pipelineRunsTotal          *prometheus.CounterVec
	syncFilesTotal             *prometheus.CounterVec
	ingestResultsTotal         *prometheus.CounterVec
	reportResultsTotal         *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pipelineRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laborsync_pipeline_runs_total",
				Help: "Total number of pipeline runs, labeled by pipeline and status.",
			},
			[]string{"pipeline", "status"},
		)

		syncFilesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laborsync_sync_files_total",
				Help: "Total number of files handled by the sync reconciler, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		ingestResultsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laborsync_ingest_results_total",
				Help: "Total number of dataset ingest runs, labeled by status.",
			},
			[]string{"status"},
		)

		reportResultsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laborsync_report_results_total",
				Help: "Total number of report computations, labeled by report and status.",
			},
			[]string{"report", "status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// ObservePipelineRun increments the run counter for a pipeline outcome.
func ObservePipelineRun(pipeline, status string) {
	if pipelineRunsTotal == nil {
		return
	}
	pipelineRunsTotal.WithLabelValues(pipeline, status).Inc()
}

// ObserveSyncFiles adds the per-outcome counts of one sync run.
func ObserveSyncFiles(uploaded, skipped, failed, deleted int) {
	if syncFilesTotal == nil {
		return
	}
	syncFilesTotal.WithLabelValues("uploaded").Add(float64(uploaded))
	syncFilesTotal.WithLabelValues("skipped").Add(float64(skipped))
	syncFilesTotal.WithLabelValues("failed").Add(float64(failed))
	syncFilesTotal.WithLabelValues("deleted").Add(float64(deleted))
}

// ObserveIngest increments the ingest result counter.
func ObserveIngest(status string) {
	if ingestResultsTotal == nil {
		return
	}
	ingestResultsTotal.WithLabelValues(status).Inc()
}

// ObserveReport increments the per-report result counter.
func ObserveReport(report, status string) {
	if reportResultsTotal == nil {
		return
	}
	reportResultsTotal.WithLabelValues(report, status).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
