package runner

import "errors"

var (
	// ErrJobAlreadyActive is returned by Start when the job name is
	// already tracked by the registry.
	ErrJobAlreadyActive = errors.New("job name already active")

	// ErrJobNotFound is returned for operations on names the registry
	// does not track.
	ErrJobNotFound = errors.New("job not found")

	// ErrBinaryNotFound means the solver binary path does not exist or
	// is not executable.
	ErrBinaryNotFound = errors.New("solver binary not found")

	// ErrWorkDirUnavailable means the working directory does not exist
	// and could not be created.
	ErrWorkDirUnavailable = errors.New("working directory unavailable")

	// ErrParamFileMissing means the parameter file does not exist.
	ErrParamFileMissing = errors.New("parameter file missing")

	// ErrSubscriptionNotFound is returned by Unsubscribe for unknown IDs.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
