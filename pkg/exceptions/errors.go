package exceptions

import "errors"

var (
	// ErrExceptionNotFound indicates the exception ID matches no record on the workflow.
	ErrExceptionNotFound = errors.New("exception not found")

	// ErrExceptionResolved indicates the exception was already closed.
	ErrExceptionResolved = errors.New("exception already resolved")

	// ErrTaskNotRetryable indicates the task run is not in a state that allows re-queueing.
	ErrTaskNotRetryable = errors.New("task run cannot be retried")

	// ErrInvalidResolution indicates an unknown resolution value.
	ErrInvalidResolution = errors.New("invalid exception resolution")
)
