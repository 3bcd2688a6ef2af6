// internal/domain/errors.go
package domain

import "errors"

// Engine error taxonomy. Structural failures (data, config, persistence)
// abort a whole run; a computation failure only skips the affected pair.
var (
	// ErrDataUnavailable means the fact store is unreachable or required
	// history is missing. The run fails without committing anything.
	ErrDataUnavailable = errors.New("fact store unavailable")

	// ErrInvalidConfig means the replenishment config violated an invariant.
	// The run aborts before any computation.
	ErrInvalidConfig = errors.New("invalid replenishment config")

	// ErrComputation means a single pair's facts were unusable. The pair is
	// excluded from the run's output with a logged reason.
	ErrComputation = errors.New("pair computation failed")

	// ErrPersistence means the run's writes could not be committed. The whole
	// run rolls back; the previous run stays latest.
	ErrPersistence = errors.New("run persistence failed")

	// ErrRunInProgress means another run holds an overlapping scope.
	ErrRunInProgress = errors.New("run already in progress for overlapping scope")

	// ErrRunNotFound means no run exists for the requested ID.
	ErrRunNotFound = errors.New("run not found")
)
