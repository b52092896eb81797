// Package config provides configuration management for the pitwall analysis tool.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "config/config.yaml"
	envPrefix         = "PITWALL"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults loads configuration with default values for every field.
// A missing config file is not an error.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pitwall")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("data.source", SourceCSV)
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.download_url", "https://ergast.com/downloads/f1db_csv.zip")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "pitwall")
	v.SetDefault("database.user", "pitwall")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("fetch.timeout_seconds", 120)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_limit", 2.0)
	v.SetDefault("fetch.circuit_breaker_max", 5)

	v.SetDefault("analysis.seed", 42)

	v.SetDefault("analysis.lap_time.min_year", 1996)
	v.SetDefault("analysis.lap_time.outlier_factor", 1.5)
	v.SetDefault("analysis.lap_time.test_fraction", 0.2)
	v.SetDefault("analysis.lap_time.max_rows", 0)
	v.SetDefault("analysis.lap_time.n_estimators", 200)
	v.SetDefault("analysis.lap_time.learning_rate", 0.1)
	v.SetDefault("analysis.lap_time.max_depth", 4)
	v.SetDefault("analysis.lap_time.min_samples_leaf", 20)
	v.SetDefault("analysis.lap_time.subsample", 0.8)
	v.SetDefault("analysis.lap_time.lambda", 1.0)
	v.SetDefault("analysis.lap_time.bins", 64)
	v.SetDefault("analysis.lap_time.sample_points", 2000)

	v.SetDefault("analysis.styles.min_races", 20)
	v.SetDefault("analysis.styles.k", 0)
	v.SetDefault("analysis.styles.k_min", 2)
	v.SetDefault("analysis.styles.k_max", 8)
	v.SetDefault("analysis.styles.n_init", 10)
	v.SetDefault("analysis.styles.max_iter", 300)
	v.SetDefault("analysis.styles.min_year", 1996)
	v.SetDefault("analysis.styles.seed", 42)

	v.SetDefault("analysis.grid.min_year", 0)
	v.SetDefault("analysis.grid.max_grid", 20)
	v.SetDefault("analysis.grid.confidence", 0.95)
	v.SetDefault("analysis.grid.alpha", 0.05)

	v.SetDefault("report.output_dir", "output")
	v.SetDefault("report.formats", []string{FormatConsole, FormatJSON, FormatExcel, FormatPNG, FormatDashboard})
	v.SetDefault("report.top_n", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.textfile_path", "output/pitwall.prom")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.refresh_cron", "0 6 * * 1")
	v.SetDefault("server.cache_ttl_seconds", 3600)
}
