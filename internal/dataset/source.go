package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/pitwall/internal/config"
)

// Source defines where a Dataset is loaded from
type Source interface {
	// Load reads and indexes every table
	Load(ctx context.Context) (*Dataset, error)

	// Name returns the name of the source
	Name() string
}

// Loader is implemented by stores able to return a full Dataset, such as the
// PostgreSQL dataset repository
type Loader interface {
	Load(ctx context.Context) (*Dataset, error)
}

// ErrNoStore is returned when a database source is requested without a store
var ErrNoStore = errors.New("postgres source requires a dataset store")

// CSVSource loads the dataset from a directory of Ergast CSV files
type CSVSource struct {
	dir string
}

// NewCSVSource creates a CSV source reading from dir
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// Load implements Source
func (s *CSVSource) Load(ctx context.Context) (*Dataset, error) {
	return LoadCSV(ctx, s.dir)
}

// Name implements Source
func (s *CSVSource) Name() string {
	return config.SourceCSV
}

// StoreSource loads the dataset from a database-backed Loader
type StoreSource struct {
	store Loader
}

// Load implements Source
func (s *StoreSource) Load(ctx context.Context) (*Dataset, error) {
	ds, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	ds.Index()
	return ds, nil
}

// Name implements Source
func (s *StoreSource) Name() string {
	return config.SourcePostgres
}

// NewSource creates the Source selected by cfg.Data.Source.
// store may be nil for the csv source.
func NewSource(cfg *config.Config, store Loader) (Source, error) {
	switch cfg.Data.Source {
	case config.SourceCSV, "":
		return NewCSVSource(cfg.Data.Dir), nil
	case config.SourcePostgres:
		if store == nil {
			return nil, ErrNoStore
		}
		return &StoreSource{store: store}, nil
	default:
		return nil, fmt.Errorf("unsupported data source: %s", cfg.Data.Source)
	}
}
