// Package config provides configuration management for the pitwall analysis tool.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("source", validateSource)
	_ = v.RegisterValidation("formats", validateFormats)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateSource(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case SourceCSV, SourcePostgres:
		return true
	default:
		return false
	}
}

func validateFormats(fl validator.FieldLevel) bool {
	formats, ok := fl.Field().Interface().([]string)
	if !ok || len(formats) == 0 {
		return false
	}

	valid := map[string]bool{
		FormatConsole:   true,
		FormatJSON:      true,
		FormatExcel:     true,
		FormatPNG:       true,
		FormatDashboard: true,
	}
	for _, f := range formats {
		if !valid[f] {
			return false
		}
	}
	return true
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	styles := cfg.Analysis.Styles
	if styles.KMin > styles.KMax {
		return fmt.Errorf("analysis.styles.k_min (%d) cannot exceed k_max (%d)", styles.KMin, styles.KMax)
	}
	if styles.K == 1 {
		return fmt.Errorf("analysis.styles.k must be 0 (auto) or at least 2")
	}

	if cfg.UsesDatabase() {
		db := cfg.Database
		if db.Host == "" || db.Name == "" || db.User == "" || db.Port == 0 {
			return fmt.Errorf("data.source %q requires database host, port, name and user", SourcePostgres)
		}
		if db.MaxIdleConnections > db.MaxConnections {
			return fmt.Errorf("max_idle_connections cannot exceed max_connections")
		}
	}

	if cfg.IsProduction() && cfg.UsesDatabase() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	if cfg.Server.RefreshCron != "" {
		if _, err := cron.ParseStandard(cfg.Server.RefreshCron); err != nil {
			return fmt.Errorf("invalid server.refresh_cron %q: %w", cfg.Server.RefreshCron, err)
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "source":
			fmt.Fprintf(&b, "- Field '%s' must be one of: csv, postgres\n", field)
		case "formats":
			fmt.Fprintf(&b, "- Field '%s' must only contain: console, json, excel, png, html\n", field)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
