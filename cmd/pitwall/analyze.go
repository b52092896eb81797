package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pitwall/internal/analysis"
	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/database"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/report"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var source, output string
	var formats []string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run every study and write the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(cmd.Context(), func(cfg *config.Config) {
				if source != "" {
					cfg.Data.Source = source
				}
				if output != "" {
					cfg.Report.OutputDir = output
				}
				if len(formats) > 0 {
					cfg.Report.Formats = formats
				}
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			pipeline, db, err := a.newPipeline(ctx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			r, err := pipeline.Run(ctx)
			if err != nil {
				return err
			}

			paths, err := report.NewWriter(a.cfg.Report, os.Stdout, a.logger).WriteAll(r)
			if err != nil {
				return err
			}

			if a.cfg.Metrics.Enabled && a.cfg.Metrics.TextfilePath != "" {
				if err := metrics.WriteTextfile(a.cfg.Metrics.TextfilePath); err != nil {
					a.logger.WithError(err).Warn("Failed to write metrics textfile")
				}
			}

			a.logger.WithFields(logrus.Fields{
				"run_id":      r.RunID,
				"outputs":     len(paths),
				"duration_ms": r.Duration().Milliseconds(),
			}).Info("Analysis complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "data source: csv or postgres (overrides data.source)")
	cmd.Flags().StringVar(&output, "output", "", "output directory (overrides report.output_dir)")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "report formats (overrides report.formats)")
	return cmd
}

// newPipeline builds the analysis pipeline for the configured source.
// The returned DB is non-nil when the source is PostgreSQL and must be closed.
func (a *app) newPipeline(ctx context.Context) (*analysis.Pipeline, *database.DB, error) {
	var (
		db    *database.DB
		store dataset.Loader
		runs  analysis.RunRecorder
	)
	if a.cfg.UsesDatabase() {
		conn, repos, err := a.openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		db, store, runs = conn, repos.Dataset, repos.Run
	}

	source, err := dataset.NewSource(a.cfg, store)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}

	pipeline, err := analysis.NewPipeline(a.cfg, source, runs, a.logger)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}
	return pipeline, db, nil
}
