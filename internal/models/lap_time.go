package models

// LapTime is a single timed lap of a driver in a race
type LapTime struct {
	RaceID       int `db:"race_id" json:"race_id"`
	DriverID     int `db:"driver_id" json:"driver_id"`
	Lap          int `db:"lap" json:"lap"`
	Position     int `db:"position" json:"position"`
	Milliseconds int `db:"milliseconds" json:"milliseconds"`
}
