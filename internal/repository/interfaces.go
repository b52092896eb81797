package repository

import (
	"context"

	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/models"
)

// DatasetRepository persists the Ergast tables
type DatasetRepository interface {
	// Store replaces every stored table with the contents of ds
	Store(ctx context.Context, ds *dataset.Dataset) error
	// Load reads every table back; the caller is responsible for indexing
	Load(ctx context.Context) (*dataset.Dataset, error)
}

// RunRepository records analysis pipeline executions
type RunRepository interface {
	Create(ctx context.Context, run *models.AnalysisRun) error
	GetLatest(ctx context.Context) (*models.AnalysisRun, error)
	List(ctx context.Context, limit int) ([]*models.AnalysisRun, error)
}
