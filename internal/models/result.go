package models

import (
	"github.com/shopspring/decimal"
)

// Result represents one driver's classification in a race
type Result struct {
	ID             int             `db:"result_id" json:"result_id" validate:"required,gt=0"`
	RaceID         int             `db:"race_id" json:"race_id" validate:"required,gt=0"`
	DriverID       int             `db:"driver_id" json:"driver_id" validate:"required,gt=0"`
	ConstructorID  int             `db:"constructor_id" json:"constructor_id" validate:"required,gt=0"`
	Grid           int             `db:"grid" json:"grid" validate:"gte=0"`
	Position       *int            `db:"position" json:"position"`
	PositionOrder  int             `db:"position_order" json:"position_order" validate:"required,gt=0"`
	Points         decimal.Decimal `db:"points" json:"points"`
	Laps           int             `db:"laps" json:"laps" validate:"gte=0"`
	Milliseconds   *int            `db:"milliseconds" json:"milliseconds"`
	FastestLapRank *int            `db:"fastest_lap_rank" json:"fastest_lap_rank"`
	StatusID       int             `db:"status_id" json:"status_id"`
}

// Won reports whether the result is a race win
func (r *Result) Won() bool {
	return r.PositionOrder == 1
}

// Podium reports whether the result is a top three finish
func (r *Result) Podium() bool {
	return r.PositionOrder >= 1 && r.PositionOrder <= 3
}

// StartedFromGrid reports whether the car started from a grid slot
// (grid 0 is a pit-lane start)
func (r *Result) StartedFromGrid() bool {
	return r.Grid > 0
}

// PositionsGained returns grid minus final classification.
// The second return value is false for pit-lane starts.
func (r *Result) PositionsGained() (int, bool) {
	if !r.StartedFromGrid() {
		return 0, false
	}
	return r.Grid - r.PositionOrder, true
}

// Finished reports whether the result is classified as a finish given its status text
func (r *Result) Finished(status string) bool {
	return IsFinish(status)
}
