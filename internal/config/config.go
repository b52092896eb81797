// Package config provides configuration management for the pitwall analysis tool.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Data     DataConfig     `mapstructure:"data" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Fetch    FetchConfig    `mapstructure:"fetch" validate:"required"`
	Analysis AnalysisConfig `mapstructure:"analysis" validate:"required"`
	Report   ReportConfig   `mapstructure:"report" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Server   ServerConfig   `mapstructure:"server"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DataConfig selects where the race data comes from
type DataConfig struct {
	Source      string `mapstructure:"source" validate:"required,source"`
	Dir         string `mapstructure:"dir" validate:"required"`
	DownloadURL string `mapstructure:"download_url" validate:"omitempty,url"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
}

// FetchConfig configures the dataset downloader
type FetchConfig struct {
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
}

// AnalysisConfig groups the settings of each study
type AnalysisConfig struct {
	Seed    int64         `mapstructure:"seed"`
	LapTime LapTimeConfig `mapstructure:"lap_time" validate:"required"`
	Styles  StylesConfig  `mapstructure:"styles" validate:"required"`
	Grid    GridConfig    `mapstructure:"grid" validate:"required"`
}

// LapTimeConfig configures the lap time regression study
type LapTimeConfig struct {
	MinYear        int     `mapstructure:"min_year" validate:"gte=0"`
	OutlierFactor  float64 `mapstructure:"outlier_factor" validate:"required,gt=1"`
	TestFraction   float64 `mapstructure:"test_fraction" validate:"required,gt=0,lt=1"`
	MaxRows        int     `mapstructure:"max_rows" validate:"gte=0"`
	NEstimators    int     `mapstructure:"n_estimators" validate:"required,gt=0"`
	LearningRate   float64 `mapstructure:"learning_rate" validate:"required,gt=0,lte=1"`
	MaxDepth       int     `mapstructure:"max_depth" validate:"required,gt=0,lte=12"`
	MinSamplesLeaf int     `mapstructure:"min_samples_leaf" validate:"required,gt=0"`
	Subsample      float64 `mapstructure:"subsample" validate:"required,gt=0,lte=1"`
	Lambda         float64 `mapstructure:"lambda" validate:"gte=0"`
	Bins           int     `mapstructure:"bins" validate:"required,gte=2,lte=256"`
	SamplePoints   int     `mapstructure:"sample_points" validate:"gte=0"`
}

// StylesConfig configures the driver style clustering study
type StylesConfig struct {
	MinRaces int   `mapstructure:"min_races" validate:"required,gt=0"`
	K        int   `mapstructure:"k" validate:"gte=0"`
	KMin     int   `mapstructure:"k_min" validate:"required,gte=2"`
	KMax     int   `mapstructure:"k_max" validate:"required,gte=2"`
	NInit    int   `mapstructure:"n_init" validate:"required,gt=0"`
	MaxIter  int   `mapstructure:"max_iter" validate:"required,gt=0"`
	MinYear  int   `mapstructure:"min_year" validate:"gte=0"`
	Seed     int64 `mapstructure:"seed"`
}

// GridConfig configures the grid position study
type GridConfig struct {
	MinYear    int     `mapstructure:"min_year" validate:"gte=0"`
	MaxGrid    int     `mapstructure:"max_grid" validate:"required,gte=3"`
	Confidence float64 `mapstructure:"confidence" validate:"required,gt=0,lt=1"`
	Alpha      float64 `mapstructure:"alpha" validate:"required,gt=0,lt=1"`
}

// ReportConfig configures the report writers
type ReportConfig struct {
	OutputDir string   `mapstructure:"output_dir" validate:"required"`
	Formats   []string `mapstructure:"formats" validate:"required,min=1,formats"`
	TopN      int      `mapstructure:"top_n" validate:"required,gt=0"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TextfilePath string `mapstructure:"textfile_path"`
}

// ServerConfig configures the serve command
type ServerConfig struct {
	Port            int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	RefreshCron     string `mapstructure:"refresh_cron"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UsesDatabase reports whether race data is read from PostgreSQL
func (c *Config) UsesDatabase() bool {
	return c.Data.Source == SourcePostgres
}

// HasFormat reports whether the given report format is enabled
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Report.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Data sources
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Report formats
const (
	FormatConsole   = "console"
	FormatJSON      = "json"
	FormatExcel     = "excel"
	FormatPNG       = "png"
	FormatDashboard = "html"
)
