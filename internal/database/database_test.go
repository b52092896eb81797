package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/config"
)

func TestSchemaCoversEveryTable(t *testing.T) {
	ddl := strings.Join(schema, "\n")
	for _, table := range []string{
		"f1_circuits", "f1_constructors", "f1_drivers", "f1_races",
		"f1_status", "f1_results", "f1_lap_times", "f1_pit_stops", "analysis_runs",
	} {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestNewDBRejectsUnreachableHost(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDB(ctx, &config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, Name: "pitwall", User: "pitwall", SSLMode: "disable",
	})
	assert.Error(t, err)
}

func TestNewDBFromDSNInvalid(t *testing.T) {
	_, err := NewDBFromDSN(context.Background(), "postgres://%zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse database DSN")
}

func TestHealthCheckIntegration(t *testing.T) {
	db := SetupTestDB(t)

	ctx := context.Background()
	require.NoError(t, db.HealthCheck(ctx))
	require.NoError(t, InitSchema(ctx, db), "schema must be idempotent")
}
