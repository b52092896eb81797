package models

import "errors"

// Custom errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("invalid record")
	ErrEmptyDataset  = errors.New("dataset is empty")
)
