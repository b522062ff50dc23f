package protocol

import (
	"errors"
	"fmt"
)

// FailureCode is the classified reason an agent reports on failure. The
// exception manager maps codes to severities; agents never decide retry policy.
type FailureCode string

const (
	FailureTimeout      FailureCode = "timeout"
	FailureTransient    FailureCode = "transient"
	FailureNotFound     FailureCode = "not_found"
	FailureInconsistent FailureCode = "data_inconsistency"
	FailureCompliance   FailureCode = "compliance_violation"
)

// ExecutionError is the classified failure an agent returns from Execute.
type ExecutionError struct {
	Code    FailureCode
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a classified agent failure.
func NewExecutionError(code FailureCode, message string, err error) *ExecutionError {
	return &ExecutionError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the failure code from an agent error. Unclassified errors
// report FailureTransient so that an unknown blip gets retried before a human
// ever sees it.
func CodeOf(err error) FailureCode {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Code
	}

	return FailureTransient
}
