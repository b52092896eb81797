package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

// Pipeline stages, used as the stage label of log entries and metrics
const (
	StageLoad    = "load"
	StageEDA     = "eda"
	StageLapTime = "lap_time"
	StageStyles  = "styles"
	StageGrid    = "grid"
)

// RunRecorder stores a record of each finished run
type RunRecorder interface {
	Create(ctx context.Context, run *models.AnalysisRun) error
}

// Pipeline loads the dataset and runs every study over it
type Pipeline struct {
	cfg    *config.Config
	source dataset.Source
	runs   RunRecorder
	log    *logger.AnalysisLogger
}

// NewPipeline creates a pipeline reading from source. runs may be nil when
// run history is not kept.
func NewPipeline(cfg *config.Config, source dataset.Source, runs RunRecorder, log *logrus.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if source == nil {
		return nil, fmt.Errorf("data source is required")
	}
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline{
		cfg:    cfg,
		source: source,
		runs:   runs,
		log:    logger.NewAnalysisLogger(log),
	}, nil
}

// Run loads and validates the dataset, computes the EDA and then runs the
// lap time, style and grid studies concurrently. The first study to fail
// cancels the others.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		Source:    p.source.Name(),
		StartedAt: time.Now().UTC(),
	}
	p.log.WithField("run_id", report.RunID).Info("Starting analysis run")

	if err := p.run(ctx, report); err != nil {
		metrics.RecordRun(report.Source, "failure", float64(time.Now().Unix()))
		return nil, err
	}

	report.FinishedAt = time.Now().UTC()
	metrics.RecordRun(report.Source, "success", float64(report.FinishedAt.Unix()))
	p.log.WithFields(logrus.Fields{
		"run_id":      report.RunID,
		"duration_ms": report.Duration().Milliseconds(),
	}).Info("Analysis run completed")

	if p.runs != nil {
		if err := p.record(ctx, report); err != nil {
			p.log.WithError(err).Warn("Failed to record analysis run")
		}
	}
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, report *Report) error {
	var ds *dataset.Dataset
	err := p.stage(StageLoad, func() (int, error) {
		var err error
		if ds, err = p.source.Load(ctx); err != nil {
			return 0, fmt.Errorf("failed to load dataset from %s: %w", p.source.Name(), err)
		}
		if err := ds.Validate(); err != nil {
			return 0, err
		}
		return len(ds.Results), nil
	})
	if err != nil {
		return err
	}

	report.Dataset = ds.Summary()
	metrics.RecordRows(report.Dataset.RowCounts, report.Dataset.Skipped)
	p.log.LogDatasetLoaded(report.Source, report.Dataset.RowCounts, report.Dataset.Skipped)
	if report.Dataset.Dangling > 0 {
		p.log.WithField("dangling", report.Dataset.Dangling).Warn("Dataset has rows referencing missing races or drivers")
	}

	if err := p.stage(StageEDA, func() (int, error) {
		report.EDA = EDA(ds, p.cfg.Report.TopN)
		return report.EDA.LapTimes.Count, nil
	}); err != nil {
		return err
	}

	studies := p.cfg.Analysis
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.stage(StageLapTime, func() (int, error) {
			res, err := LapTimeStudy(gctx, ds, studies.LapTime, studies.Seed)
			if err != nil {
				return 0, err
			}
			for _, m := range []ModelResult{res.OLS, res.GBM} {
				metrics.RecordModelScores(m.Name, m.Test.R2, m.Test.RMSE, m.Test.MAE)
				p.log.LogModelScores(m.Name, m.Test.R2, m.Test.RMSE, m.Test.MAE)
			}
			report.LapTime = res
			return res.Rows, nil
		})
	})
	g.Go(func() error {
		return p.stage(StageStyles, func() (int, error) {
			res, err := StyleStudy(gctx, ds, studies.Styles, studies.LapTime.OutlierFactor)
			if err != nil {
				return 0, err
			}
			metrics.RecordClustering(res.K, res.Silhouette)
			p.log.LogClusterSelection(res.K, res.Silhouette, res.Drivers)
			report.Styles = res
			return res.Drivers, nil
		})
	})
	g.Go(func() error {
		return p.stage(StageGrid, func() (int, error) {
			res, err := GridStudy(gctx, ds, studies.Grid)
			if err != nil {
				return 0, err
			}
			metrics.RecordGridTest(res.ChiSquare.Statistic, res.ChiSquare.PValue)
			p.log.LogGridTest(res.ChiSquare.Statistic, res.ChiSquare.PValue, res.ChiSquare.CramersV, res.Starts)
			report.Grid = res
			return res.Starts, nil
		})
	})
	return g.Wait()
}

// stage times fn and records its outcome. fn returns the number of rows it processed.
func (p *Pipeline) stage(name string, fn func() (int, error)) error {
	start := time.Now()
	rows, err := fn()
	elapsed := time.Since(start)
	metrics.RecordStage(name, elapsed.Seconds())
	if err != nil {
		p.log.LogStageFailed(name, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.log.LogStageCompleted(name, rows, elapsed)
	return nil
}

func (p *Pipeline) record(ctx context.Context, report *Report) error {
	summary, err := report.HeadlineJSON()
	if err != nil {
		return err
	}
	return p.runs.Create(ctx, &models.AnalysisRun{
		ID:         report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Source:     report.Source,
		Summary:    summary,
	})
}
