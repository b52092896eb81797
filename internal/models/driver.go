package models

import (
	"time"
)

// Driver represents a race driver
type Driver struct {
	ID          int        `db:"driver_id" json:"driver_id" validate:"required,gt=0"`
	Ref         string     `db:"driver_ref" json:"driver_ref"`
	Code        string     `db:"code" json:"code"`
	Forename    string     `db:"forename" json:"forename"`
	Surname     string     `db:"surname" json:"surname" validate:"required"`
	DOB         *time.Time `db:"dob" json:"dob"`
	Nationality string     `db:"nationality" json:"nationality"`
}

// FullName returns the forename and surname
func (d *Driver) FullName() string {
	if d.Forename == "" {
		return d.Surname
	}
	return d.Forename + " " + d.Surname
}

// AgeAt returns the driver's age in fractional years on the given date,
// or 0 when the date of birth is unknown
func (d *Driver) AgeAt(date time.Time) float64 {
	if d.DOB == nil || date.IsZero() || date.Before(*d.DOB) {
		return 0
	}
	return date.Sub(*d.DOB).Hours() / (24 * 365.25)
}
