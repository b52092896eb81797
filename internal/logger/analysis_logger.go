// Package logger provides analysis-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AnalysisLogger provides dedicated logging for pipeline stages and studies.
type AnalysisLogger struct {
	*logrus.Entry
}

// NewAnalysisLogger creates a new analysis logger.
func NewAnalysisLogger(baseLogger *logrus.Logger) *AnalysisLogger {
	return &AnalysisLogger{
		Entry: baseLogger.WithField("component", "analysis"),
	}
}

// LogDatasetLoaded logs the row counts of a freshly loaded dataset.
func (al *AnalysisLogger) LogDatasetLoaded(source string, counts map[string]int, skipped int) {
	al.WithFields(logrus.Fields{
		"source":       source,
		"row_counts":   counts,
		"skipped_rows": skipped,
	}).Info("Dataset loaded")
}

// LogStageCompleted logs the end of a pipeline stage.
func (al *AnalysisLogger) LogStageCompleted(stage string, rows int, duration time.Duration) {
	al.WithFields(logrus.Fields{
		"stage":       stage,
		"rows":        rows,
		"duration_ms": duration.Milliseconds(),
	}).Info("Stage completed")
}

// LogStageFailed logs a failed pipeline stage.
func (al *AnalysisLogger) LogStageFailed(stage string, err error) {
	al.WithFields(logrus.Fields{
		"stage": stage,
		"error": err.Error(),
	}).Error("Stage failed")
}

// LogModelScores logs test-set scores of a fitted lap time model.
func (al *AnalysisLogger) LogModelScores(model string, r2, rmse, mae float64) {
	al.WithFields(logrus.Fields{
		"model": model,
		"r2":    r2,
		"rmse":  rmse,
		"mae":   mae,
	}).Info("Model evaluated")
}

// LogClusterSelection logs the chosen number of driver style clusters.
func (al *AnalysisLogger) LogClusterSelection(k int, silhouette float64, drivers int) {
	al.WithFields(logrus.Fields{
		"k":          k,
		"silhouette": silhouette,
		"drivers":    drivers,
	}).Info("Driver style clusters selected")
}

// LogGridTest logs the grid position independence test.
func (al *AnalysisLogger) LogGridTest(chiSquare float64, pValue float64, cramersV float64, starts int) {
	al.WithFields(logrus.Fields{
		"chi_square": chiSquare,
		"p_value":    pValue,
		"cramers_v":  cramersV,
		"starts":     starts,
	}).Info("Grid position test completed")
}
