// Package services provides the orchestration operations exposed by the API:
// workflow creation, status projection, exception resolution, cancellation and
// evidence bundle access.
package services

import (
	"errors"
	"fmt"

	"github.com/credentio/credentio/pkg/exceptions"
	"github.com/credentio/credentio/pkg/graph"
	"github.com/credentio/credentio/pkg/persistence"
)

// Business logic errors. Validation errors map to 400, conflicts to 409.
var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrPassportRequired       = errors.New("passport snapshot is required")
	ErrChecklistRequired      = errors.New("requirements checklist is required")
	ErrInvalidDestinationType = errors.New("invalid destination type")
	ErrInvalidResolution      = exceptions.ErrInvalidResolution

	ErrWorkflowTerminal   = errors.New("workflow is in a terminal state")
	ErrBundleNotReady     = errors.New("evidence bundle is only available once the workflow is approved")
	ErrExceptionNotFound  = exceptions.ErrExceptionNotFound
	ErrExceptionResolved  = exceptions.ErrExceptionResolved
	ErrWorkflowNotFound   = persistence.ErrWorkflowNotFound
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrPassportRequired) ||
		errors.Is(err, ErrChecklistRequired) ||
		errors.Is(err, ErrInvalidDestinationType) ||
		errors.Is(err, ErrInvalidResolution) ||
		graph.IsConstructionError(err)
}

// IsConflictError checks if an error is a business logic conflict (HTTP 409).
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowTerminal) ||
		errors.Is(err, ErrBundleNotReady) ||
		errors.Is(err, ErrExceptionResolved) ||
		errors.Is(err, exceptions.ErrTaskNotRetryable)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsWorkflowNotFound(err) ||
		persistence.IsBundleNotFound(err) ||
		errors.Is(err, ErrExceptionNotFound)
}
