package models

import (
	"time"
)

// Race represents one Grand Prix of a season
type Race struct {
	ID        int       `db:"race_id" json:"race_id" validate:"required,gt=0"`
	Year      int       `db:"year" json:"year" validate:"required,gte=1950"`
	Round     int       `db:"round" json:"round" validate:"required,gt=0"`
	CircuitID int       `db:"circuit_id" json:"circuit_id" validate:"required,gt=0"`
	Name      string    `db:"name" json:"name" validate:"required"`
	Date      time.Time `db:"date" json:"date"`
}

// Decade returns the decade the race belongs to, e.g. 1990
func (r *Race) Decade() int {
	return r.Year - r.Year%10
}
