package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/analysis"
	"github.com/yourusername/pitwall/internal/config"
)

// Output file names inside the output directory
const (
	FileJSON      = "report.json"
	FileWorkbook  = "report.xlsx"
	FileDashboard = "dashboard.html"
	DirFigures    = "figures"
)

// Writer renders a report in every configured format
type Writer struct {
	cfg     config.ReportConfig
	console io.Writer
	logger  *logrus.Logger
}

// NewWriter creates a report writer. Console output goes to console,
// typically os.Stdout.
func NewWriter(cfg config.ReportConfig, console io.Writer, logger *logrus.Logger) *Writer {
	if console == nil {
		console = os.Stdout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Writer{cfg: cfg, console: console, logger: logger}
}

// WriteAll writes every enabled output and returns the paths of the written files
func (w *Writer) WriteAll(r *analysis.Report) ([]string, error) {
	if err := os.MkdirAll(w.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for _, format := range w.cfg.Formats {
		paths, err := w.write(format, r)
		if err != nil {
			return written, fmt.Errorf("%s output: %w", format, err)
		}
		for _, p := range paths {
			w.logger.WithFields(logrus.Fields{"format": format, "path": p}).Info("Report written")
		}
		written = append(written, paths...)
	}
	return written, nil
}

func (w *Writer) write(format string, r *analysis.Report) ([]string, error) {
	switch format {
	case config.FormatConsole:
		return nil, WriteConsole(w.console, r)
	case config.FormatJSON:
		path := filepath.Join(w.cfg.OutputDir, FileJSON)
		return []string{path}, WriteJSON(r, path)
	case config.FormatExcel:
		path := filepath.Join(w.cfg.OutputDir, FileWorkbook)
		return []string{path}, WriteWorkbook(r, path)
	case config.FormatPNG:
		return WriteFigures(r, filepath.Join(w.cfg.OutputDir, DirFigures))
	case config.FormatDashboard:
		path := filepath.Join(w.cfg.OutputDir, FileDashboard)
		return []string{path}, WriteDashboard(r, path)
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
