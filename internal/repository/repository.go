// Package repository implements PostgreSQL persistence for datasets and runs.
package repository

import (
	"fmt"

	"github.com/yourusername/pitwall/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Dataset DatasetRepository
	Run     RunRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Dataset: NewPostgresDatasetRepository(db),
		Run:     NewPostgresRunRepository(db),
	}, nil
}
