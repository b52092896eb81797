package models

import (
	"regexp"
)

// StatusFinished is the status text of a classified finisher on the lead lap
const StatusFinished = "Finished"

var lappedStatus = regexp.MustCompile(`^\+\d+ Laps?$`)

// Status describes how a result ended (finished, lapped, retired, ...)
type Status struct {
	ID     int    `db:"status_id" json:"status_id" validate:"required,gt=0"`
	Status string `db:"status" json:"status" validate:"required"`
}

// IsFinish reports whether the status denotes a car that took the chequered flag
func IsFinish(status string) bool {
	return status == StatusFinished || lappedStatus.MatchString(status)
}
