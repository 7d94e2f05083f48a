package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrJobAlreadyRunning is returned when a manual run overlaps a scheduled one
	ErrJobAlreadyRunning = errors.New("job already running")
)
