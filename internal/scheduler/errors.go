package scheduler

import "errors"

var (
	// ErrInvalidSpec is returned when a cron expression cannot be parsed.
	ErrInvalidSpec = errors.New("invalid cron spec")
	// ErrStarted is returned by Add after Start.
	ErrStarted = errors.New("scheduler already started")
)
