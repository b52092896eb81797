package models

// PitStop is one stop of a driver in a race
type PitStop struct {
	RaceID       int `db:"race_id" json:"race_id"`
	DriverID     int `db:"driver_id" json:"driver_id"`
	Stop         int `db:"stop" json:"stop"`
	Lap          int `db:"lap" json:"lap"`
	Milliseconds int `db:"milliseconds" json:"milliseconds"`
}
