package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newLogger(buf, "debug", "development")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)

	log = newLogger(buf, "nonsense", "production")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
	assert.Contains(t, buf.String(), "Invalid log level")
}

func TestAnalysisLoggerStageCompleted(t *testing.T) {
	log, buf := setupTestLogger()
	al := NewAnalysisLogger(log)

	al.LogStageCompleted("lap_time", 1200, 1500*time.Millisecond)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "analysis", logEntry["component"])
	assert.Equal(t, "lap_time", logEntry["stage"])
	assert.Equal(t, float64(1200), logEntry["rows"])
	assert.Equal(t, float64(1500), logEntry["duration_ms"])
}

func TestAnalysisLoggerStageFailed(t *testing.T) {
	log, buf := setupTestLogger()
	al := NewAnalysisLogger(log)

	al.LogStageFailed("styles", errors.New("not enough drivers"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "not enough drivers", logEntry["error"])
}

func TestAnalysisLoggerGridTest(t *testing.T) {
	log, buf := setupTestLogger()
	al := NewAnalysisLogger(log)

	al.LogGridTest(812.5, 0.0001, 0.41, 24000)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, 812.5, logEntry["chi_square"])
	assert.Equal(t, 0.41, logEntry["cramers_v"])
	assert.Equal(t, "Grid position test completed", logEntry["msg"])
}
