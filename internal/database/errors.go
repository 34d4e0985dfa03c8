package database

import "errors"

var (
	// ErrNotFound is returned when a requested run or sub-tour does not exist
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidName is returned for sub-tour names that cannot be used as a storage key
	ErrInvalidName = errors.New("invalid sub-tour name")
)
