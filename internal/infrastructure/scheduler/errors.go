package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrFanOutInProgress is returned when a scheduled sync of all accounts is
	// already running in this process
	ErrFanOutInProgress = errors.New("account sync fan-out already in progress")
)
