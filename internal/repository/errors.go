package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	// Load returns it when the store holds no snapshot yet.
	ErrNotFound = errors.New("entity not found")
)
