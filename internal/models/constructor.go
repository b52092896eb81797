package models

// Constructor represents a team entering cars
type Constructor struct {
	ID          int    `db:"constructor_id" json:"constructor_id" validate:"required,gt=0"`
	Ref         string `db:"constructor_ref" json:"constructor_ref"`
	Name        string `db:"name" json:"name" validate:"required"`
	Nationality string `db:"nationality" json:"nationality"`
}
