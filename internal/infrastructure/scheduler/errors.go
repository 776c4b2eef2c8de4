package scheduler

import "errors"

var (
	// ErrDuplicateJob is returned when a job name is registered twice.
	ErrDuplicateJob = errors.New("job already registered")

	// ErrJobNotFound is returned for an unknown job name.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidConfig is returned for a job without a name, spec or function.
	ErrInvalidConfig = errors.New("invalid job configuration")

	// ErrAlreadyRunning is returned by RunNow while the previous run is active.
	ErrAlreadyRunning = errors.New("job is already running")
)
