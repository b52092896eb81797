package models

// Circuit represents a racing venue
type Circuit struct {
	ID       int     `db:"circuit_id" json:"circuit_id" validate:"required,gt=0"`
	Ref      string  `db:"circuit_ref" json:"circuit_ref"`
	Name     string  `db:"name" json:"name" validate:"required"`
	Location string  `db:"location" json:"location"`
	Country  string  `db:"country" json:"country"`
	Lat      float64 `db:"lat" json:"lat"`
	Lng      float64 `db:"lng" json:"lng"`
}
