package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnalysisRun records one execution of the analysis pipeline
type AnalysisRun struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	StartedAt  time.Time       `db:"started_at" json:"started_at"`
	FinishedAt time.Time       `db:"finished_at" json:"finished_at"`
	Source     string          `db:"source" json:"source"`
	Summary    json.RawMessage `db:"summary" json:"summary"`
}
