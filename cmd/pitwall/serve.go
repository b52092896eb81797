package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/pitwall/internal/analysis"
	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/scheduler"
	"github.com/yourusername/pitwall/internal/server"
)

const refreshJob = "refresh"

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest report over HTTP and refresh it on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(cmd.Context(), func(cfg *config.Config) {
				if port != 0 {
					cfg.Server.Port = port
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

			srvCfg := server.Config{
				ServiceName: a.cfg.App.Name,
				Version:     version,
				Port:        a.cfg.Server.Port,
				CacheTTL:    time.Duration(a.cfg.Server.CacheTTLSeconds) * time.Second,
				Logger:      a.logger,
				Refresh: func(ctx context.Context) (*analysis.Report, error) {
					return pipeline.Run(ctx)
				},
			}
			if db != nil {
				defer db.Close()
				srvCfg.DB = db
			}
			srv := server.New(srvCfg)

			refresh := func(ctx context.Context) error {
				if _, err := srv.Refresh(ctx); err != nil {
					return err
				}
				srv.SetReady(true)
				return nil
			}

			sched := scheduler.NewScheduler(a.logger)
			if a.cfg.Server.RefreshCron != "" {
				if _, err := sched.Schedule(refreshJob, a.cfg.Server.RefreshCron, refresh); err != nil {
					return err
				}
				if err := sched.Start(); err != nil {
					return err
				}
				defer sched.Stop()
			}

			if err := srv.Start(ctx); err != nil {
				return err
			}

			go func() {
				if err := refresh(ctx); err != nil {
					a.logger.WithError(err).Error("Initial analysis failed")
				}
			}()

			<-ctx.Done()
			a.logger.Info("Shutting down")
			return srv.Shutdown()
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}
