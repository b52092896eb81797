package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/pitwall/internal/database"
	"github.com/yourusername/pitwall/internal/models"
)

const errScanRun = "failed to scan analysis run: %w"

var _ RunRepository = (*PostgresRunRepository)(nil)

// PostgresRunRepository implements RunRepository for PostgreSQL
type PostgresRunRepository struct {
	db *database.DB
}

// NewPostgresRunRepository creates a new run repository
func NewPostgresRunRepository(db *database.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

// Create inserts a new analysis run
func (r *PostgresRunRepository) Create(ctx context.Context, run *models.AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (id, started_at, finished_at, source, summary)
		VALUES ($1, $2, $3, $4, $5)
	`

	summary := string(run.Summary)
	if summary == "" {
		summary = "{}"
	}

	_, err := r.db.GetPool().Exec(ctx, query, run.ID, run.StartedAt, run.FinishedAt, run.Source, summary)
	if err != nil {
		return fmt.Errorf("failed to create analysis run: %w", err)
	}

	return nil
}

// GetLatest returns the most recently started run
func (r *PostgresRunRepository) GetLatest(ctx context.Context) (*models.AnalysisRun, error) {
	runs, err := r.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, models.ErrNotFound
	}
	return runs[0], nil
}

// List returns up to limit runs, newest first
func (r *PostgresRunRepository) List(ctx context.Context, limit int) ([]*models.AnalysisRun, error) {
	query := `
		SELECT id, started_at, finished_at, source, summary::text
		FROM analysis_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.AnalysisRun
	for rows.Next() {
		run := &models.AnalysisRun{}
		var summary string
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Source, &summary); err != nil {
			return nil, fmt.Errorf(errScanRun, err)
		}
		run.Summary = []byte(summary)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
