package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
)

func newIngestCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the CSV export into PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(cmd.Context(), func(cfg *config.Config) {
				if dir != "" {
					cfg.Data.Dir = dir
				}
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			start := time.Now()
			ds, err := dataset.LoadCSV(ctx, a.cfg.Data.Dir)
			if err != nil {
				return err
			}
			if err := ds.Validate(); err != nil {
				return err
			}

			db, repos, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repos.Dataset.Store(ctx, ds); err != nil {
				return err
			}

			a.logger.WithFields(logrus.Fields{
				"rows":        ds.RowCounts(),
				"skipped":     ds.Skipped,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Info("Dataset ingested")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "CSV directory (overrides data.dir)")
	return cmd
}
