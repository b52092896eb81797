// Package config provides configuration management for the pitwall analysis tool.
package config

import (
	"reflect"
	"strings"
	"testing"
)

const (
	validConfigPath              = "testdata/valid_config.yaml"
	partialConfigPath            = "testdata/partial_config.yaml"
	nonexistentConfigPath        = "testdata/nonexistent_config.yaml"
	shippedConfigPath            = "../../config/config.yaml"
	expectedNoErrorLoadingConfig = "expected no error loading config, got %v"
	expectedNoErrorMsg           = "expected no error, got %v"
	pitwallName                  = "pitwall"
	developmentEnv               = "development"
	testAppName                  = "test-app"
	postgresPrefix               = "postgres://"
)

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "expanded_secret_value")

	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.App.Name != pitwallName {
		t.Errorf("expected app name '%s', got '%s'", pitwallName, cfg.App.Name)
	}
	if cfg.App.Environment != developmentEnv {
		t.Errorf("expected environment '%s', got '%s'", developmentEnv, cfg.App.Environment)
	}
	if cfg.Database.Password != "expanded_secret_value" {
		t.Errorf("expected expanded password, got '%s'", cfg.Database.Password)
	}
	if cfg.Analysis.LapTime.NEstimators != 150 {
		t.Errorf("expected 150 estimators, got %d", cfg.Analysis.LapTime.NEstimators)
	}
	if cfg.Analysis.Styles.Seed != 7 {
		t.Errorf("expected styles seed 7, got %d", cfg.Analysis.Styles.Seed)
	}
	if len(cfg.Report.Formats) != 5 {
		t.Errorf("expected 5 report formats, got %v", cfg.Report.Formats)
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	if _, err := Load(nonexistentConfigPath); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("PITWALL_APP_NAME", testAppName)

	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.App.Name != testAppName {
		t.Errorf("expected app name '%s' from environment, got '%s'", testAppName, cfg.App.Name)
	}
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.Data.Source != SourceCSV {
		t.Errorf("expected default source csv, got %s", cfg.Data.Source)
	}
	if cfg.Analysis.Grid.Confidence != 0.95 {
		t.Errorf("expected default confidence 0.95, got %v", cfg.Analysis.Grid.Confidence)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

// TestShippedConfigMatchesDefaults keeps config/config.yaml in step with setDefaults
func TestShippedConfigMatchesDefaults(t *testing.T) {
	shipped, err := LoadWithDefaults(shippedConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	defaults, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	shipped.Database.Password = defaults.Database.Password

	sections := []struct {
		name            string
		shipped, wanted interface{}
	}{
		{"app", shipped.App, defaults.App},
		{"data", shipped.Data, defaults.Data},
		{"database", shipped.Database, defaults.Database},
		{"fetch", shipped.Fetch, defaults.Fetch},
		{"analysis", shipped.Analysis, defaults.Analysis},
		{"report", shipped.Report, defaults.Report},
		{"metrics", shipped.Metrics, defaults.Metrics},
		{"server", shipped.Server, defaults.Server},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.shipped, s.wanted) {
			t.Errorf("%s: config.yaml has %+v, defaults are %+v", s.name, s.shipped, s.wanted)
		}
	}
}

func TestLoadWithDefaultsMergesFile(t *testing.T) {
	cfg, err := LoadWithDefaults(partialConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.App.LogLevel != "debug" {
		t.Errorf("expected log level from file, got %s", cfg.App.LogLevel)
	}
	if cfg.App.Name != pitwallName {
		t.Errorf("expected default app name, got %s", cfg.App.Name)
	}
	if !cfg.UsesDatabase() {
		t.Error("expected postgres source from file")
	}
	if cfg.Analysis.LapTime.MaxDepth != 4 {
		t.Errorf("expected default max depth 4, got %d", cfg.Analysis.LapTime.MaxDepth)
	}
}

// TestValidateSuccess tests validation of a valid configuration
func TestValidateSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid environment",
			mutate:  func(c *Config) { c.App.Environment = "invalid" },
			wantErr: "Environment",
		},
		{
			name:    "invalid source",
			mutate:  func(c *Config) { c.Data.Source = "parquet" },
			wantErr: "csv, postgres",
		},
		{
			name:    "unknown report format",
			mutate:  func(c *Config) { c.Report.Formats = []string{"console", "pdf"} },
			wantErr: "Formats",
		},
		{
			name:    "test fraction out of range",
			mutate:  func(c *Config) { c.Analysis.LapTime.TestFraction = 1.5 },
			wantErr: "TestFraction",
		},
		{
			name:    "k range inverted",
			mutate:  func(c *Config) { c.Analysis.Styles.KMin, c.Analysis.Styles.KMax = 6, 3 },
			wantErr: "k_min",
		},
		{
			name:    "single cluster",
			mutate:  func(c *Config) { c.Analysis.Styles.K = 1 },
			wantErr: "analysis.styles.k",
		},
		{
			name: "postgres without host",
			mutate: func(c *Config) {
				c.Data.Source = SourcePostgres
				c.Database.Host = ""
			},
			wantErr: "requires database",
		},
		{
			name:    "bad cron",
			mutate:  func(c *Config) { c.Server.RefreshCron = "every monday" },
			wantErr: "refresh_cron",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(validConfigPath)
			if err != nil {
				t.Fatalf(expectedNoErrorLoadingConfig, err)
			}
			tt.mutate(cfg)

			err = Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

// TestGetDatabaseDSN tests DSN generation
func TestGetDatabaseDSN(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	dsn := cfg.GetDatabaseDSN()
	if !strings.HasPrefix(dsn, postgresPrefix) {
		t.Errorf("expected DSN to start with '%s', got '%s'", postgresPrefix, dsn)
	}
}

func TestHasFormat(t *testing.T) {
	cfg := &Config{Report: ReportConfig{Formats: []string{FormatJSON, FormatPNG}}}

	if !cfg.HasFormat(FormatJSON) {
		t.Error("expected json format to be enabled")
	}
	if cfg.HasFormat(FormatExcel) {
		t.Error("expected excel format to be disabled")
	}
}

// TestIsProduction tests production environment check
func TestIsProduction(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: "production"}}

	if !cfg.IsProduction() {
		t.Error("expected IsProduction() to return true")
	}
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return false")
	}
}

func TestOverlaySecrets(t *testing.T) {
	cfg := &Config{}
	overlaySecretsOnConfig(cfg, &SecretsOverlay{DatabasePassword: "s3cret"})

	if cfg.Database.Password != "s3cret" {
		t.Errorf("expected password overlay, got %q", cfg.Database.Password)
	}
	if cfg.Database.User != "" {
		t.Errorf("expected empty user to be left untouched, got %q", cfg.Database.User)
	}
}
