package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/database"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/repository"
)

// app carries the state shared by every subcommand
type app struct {
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "pitwall",
		Short:         "Historical Formula 1 data analysis",
		Long:          "pitwall studies the Ergast Formula 1 dataset: lap time models, driver racing styles and the link between grid position and winning.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config/config.yaml", "path to the configuration file")

	root.AddCommand(
		newFetchCmd(a),
		newIngestCmd(a),
		newAnalyzeCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads, overrides and validates the configuration and creates the logger.
// A missing config file falls back to defaults.
func (a *app) setup(ctx context.Context, overrides ...func(*config.Config)) error {
	cfg, err := config.LoadWithDefaults(a.configPath)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	a.logger.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"version":     version,
	}).Debug("Configuration loaded")
	return nil
}

// openStore connects to PostgreSQL and makes sure the schema exists
func (a *app) openStore(ctx context.Context) (*database.DB, *repository.Repositories, error) {
	db, err := database.Initialize(ctx, a.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	a.logger.Info("Database connection established")
	return db, repos, nil
}
