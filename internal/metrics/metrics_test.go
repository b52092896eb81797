package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordRun(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("csv", "success"))

	RecordRun("csv", "success", 1700000000)

	assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("csv", "success")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(LastRunTimestamp))

	RecordRun("csv", "failure", 1800000000)
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(LastRunTimestamp), "failures do not move the last run time")
}

func TestRecordRows(t *testing.T) {
	InitRegistry()
	RecordRows(map[string]int{"races": 1100, "lap_times": 500000}, 3)

	assert.Equal(t, 1100.0, testutil.ToFloat64(RowsLoaded.WithLabelValues("races")))
	assert.Equal(t, 500000.0, testutil.ToFloat64(RowsLoaded.WithLabelValues("lap_times")))
	assert.Equal(t, 3.0, testutil.ToFloat64(RowsSkipped))
}

func TestRecordStudyMetrics(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name  string
		model string
		r2    float64
	}{
		{name: "ols", model: "ols", r2: 0.71},
		{name: "gbm", model: "gradient_boosting", r2: 0.93},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordModelScores(tt.model, tt.r2, 0.05, 0.03)
			assert.Equal(t, tt.r2, testutil.ToFloat64(ModelScore.WithLabelValues(tt.model, "r2")))
		})
	}

	RecordClustering(4, 0.38)
	assert.Equal(t, 4.0, testutil.ToFloat64(ClusterCount))

	RecordGridTest(12000, 0)
	assert.Equal(t, 12000.0, testutil.ToFloat64(GridChiSquare))
}

func TestRecordCacheLookup(t *testing.T) {
	InitRegistry()
	hits := testutil.ToFloat64(ReportCacheRequestsTotal.WithLabelValues("hit"))

	RecordCacheLookup(true)
	RecordCacheLookup(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(ReportCacheRequestsTotal.WithLabelValues("hit")))
}

func TestStageDurationAndHandler(t *testing.T) {
	InitRegistry()
	assert.NotPanics(t, func() {
		RecordStage("eda", 0.25)
		RecordDownload(1024)
		RecordCircuitBreakerTrip()
	})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pitwall_stage_duration_seconds_count{stage="eda"}`)
}

func TestWriteTextfile(t *testing.T) {
	InitRegistry()
	RecordStage("grid", 1.5)

	path := filepath.Join(t.TempDir(), "pitwall.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "pitwall_stage_duration_seconds"))

	assert.Error(t, WriteTextfile(filepath.Join(t.TempDir(), "missing", "pitwall.prom")))
}
