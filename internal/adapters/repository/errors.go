package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound = errors.New("event not found")
	ErrHasID    = errors.New("event already has an id")
)
