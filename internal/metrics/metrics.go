// Package metrics provides the centralized Prometheus registry for pitwall.
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pitwall"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_runs_total",
		Help:      "Total number of pipeline runs by data source and status",
	}, []string{"source", "status"})
	DownloadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "download_bytes_total",
		Help:      "Total bytes of dataset archives downloaded",
	})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of download circuit breaker trips",
	})
	ReportCacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_cache_requests_total",
		Help:      "Report cache lookups by result",
	}, []string{"result"})
)

// Gauge metrics
var (
	RowsLoaded = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rows_loaded",
		Help:      "Rows loaded per table in the last run",
	}, []string{"table"})
	RowsSkipped = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rows_skipped",
		Help:      "Rows dropped while loading because a key column was null",
	})
	LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last successful run finished",
	})
)

// Histogram metrics
var (
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages in seconds",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
	}, []string{"stage"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(RunsTotal)
		registry.MustRegister(DownloadBytesTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)
		registry.MustRegister(ReportCacheRequestsTotal)

		registry.MustRegister(RowsLoaded)
		registry.MustRegister(RowsSkipped)
		registry.MustRegister(LastRunTimestamp)

		registry.MustRegister(StageDuration)

		registry.MustRegister(ModelScore)
		registry.MustRegister(ClusterCount)
		registry.MustRegister(ClusterSilhouette)
		registry.MustRegister(GridChiSquare)
		registry.MustRegister(GridPValue)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// WriteTextfile writes the current registry in the text exposition format,
// for collection by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, GetRegistry()); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// RecordRun records a finished pipeline run.
// status should be one of: "success", "failure".
func RecordRun(source, status string, finishedUnix float64) {
	RunsTotal.WithLabelValues(source, status).Inc()
	if status == "success" {
		LastRunTimestamp.Set(finishedUnix)
	}
}

// RecordStage records the duration of a pipeline stage.
func RecordStage(stage string, durationSeconds float64) {
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordRows records the loaded row counts per table.
func RecordRows(counts map[string]int, skipped int) {
	for table, n := range counts {
		RowsLoaded.WithLabelValues(table).Set(float64(n))
	}
	RowsSkipped.Set(float64(skipped))
}

// RecordDownload records the size of a downloaded archive.
func RecordDownload(bytes int64) {
	DownloadBytesTotal.Add(float64(bytes))
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// RecordCacheLookup records a report cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ReportCacheRequestsTotal.WithLabelValues(result).Inc()
}
