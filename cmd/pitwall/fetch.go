package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
)

func newFetchCmd(a *app) *cobra.Command {
	var url, dir string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and extract the Ergast CSV archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(cmd.Context(), func(cfg *config.Config) {
				if url != "" {
					cfg.Data.DownloadURL = url
				}
				if dir != "" {
					cfg.Data.Dir = dir
				}
			})
			if err != nil {
				return err
			}
			if a.cfg.Data.DownloadURL == "" {
				return fmt.Errorf("no download URL configured")
			}

			client := dataset.NewRateLimitedHTTPClient(dataset.HTTPClientConfigFrom(a.cfg.Fetch), a.logger)
			defer client.Close()

			result, err := dataset.NewFetcher(client, a.logger).Fetch(cmd.Context(), a.cfg.Data.DownloadURL, a.cfg.Data.Dir)
			if err != nil {
				return err
			}

			a.logger.WithFields(logrus.Fields{
				"dir":   a.cfg.Data.Dir,
				"files": len(result.Files),
				"size":  humanize.Bytes(uint64(result.Bytes)),
			}).Info("Dataset fetched")
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "archive URL (overrides data.download_url)")
	cmd.Flags().StringVar(&dir, "dir", "", "extraction directory (overrides data.dir)")
	return cmd
}
