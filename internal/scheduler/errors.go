package scheduler

import "errors"

var (
	// ErrInboxFull is returned when the submission or join queue is full.
	// The caller may retry on a later tick.
	ErrInboxFull = errors.New("scheduler inbox full")

	// ErrDuplicateWorker is logged when a join names a worker already on
	// the roster. The join is ignored.
	ErrDuplicateWorker = errors.New("duplicate worker name")

	// ErrEmptyWorkerName is returned by AddWorker for a blank name.
	ErrEmptyWorkerName = errors.New("worker name is required")
)
