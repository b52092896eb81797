package dataset

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/metrics"
)

// Fetcher downloads the Ergast CSV archive and unpacks it into a data directory
type Fetcher struct {
	client *RateLimitedHTTPClient
	logger *logrus.Logger
}

// FetchResult lists the files written by a fetch
type FetchResult struct {
	Archive string   `json:"archive"`
	Bytes   int64    `json:"bytes"`
	Files   []string `json:"files"`
}

// NewFetcher creates a new fetcher
func NewFetcher(client *RateLimitedHTTPClient, logger *logrus.Logger) *Fetcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{client: client, logger: logger}
}

// Fetch downloads the ZIP archive at url and extracts its CSV files into dir
func (f *Fetcher) Fetch(ctx context.Context, url string, dir string) (*FetchResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "download-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary archive: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: unexpected status %d", url, resp.StatusCode)
	}

	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to save archive: %w", err)
	}

	metrics.RecordDownload(size)
	f.logger.WithFields(logrus.Fields{"url": url, "bytes": size}).Info("Archive downloaded")

	files, err := Extract(tmp, size, dir)
	if err != nil {
		return nil, err
	}

	return &FetchResult{Archive: url, Bytes: size, Files: files}, nil
}

// Extract writes every *.csv entry of the archive into dir and returns the
// written file names. Entries whose path escapes the archive root are rejected.
func Extract(r io.ReaderAt, size int64, dir string) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	var written []string
	for _, entry := range zr.File {
		name := filepath.Clean(entry.Name)
		if filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("archive entry %q escapes the data directory", entry.Name)
		}
		if entry.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}

		target := filepath.Join(dir, filepath.Base(name))
		if err := extractFile(entry, target); err != nil {
			return nil, err
		}
		written = append(written, filepath.Base(name))
	}

	if len(written) == 0 {
		return nil, fmt.Errorf("archive contains no CSV files")
	}
	return written, nil
}

func extractFile(entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	return dst.Close()
}
