// Package exceptions classifies task failures, decides retry versus escalate,
// and maintains the open exception list for each workflow.
package exceptions

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
	"github.com/google/uuid"
)

// Policy holds the retry backoff constants. These are configuration, not law;
// defaults are documented with the deployment, not here.
type Policy struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// DefaultPolicy returns the stock backoff constants.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:  500 * time.Millisecond,
		Multiplier: 2,
		MaxDelay:   30 * time.Second,
	}
}

// Decision is the manager's verdict on one failed task run.
type Decision struct {
	Severity models.ExceptionSeverity
	Retry    bool
	Delay    time.Duration
	// Exception is set when the failure opened a record for human review.
	Exception *models.ExceptionRecord
}

type Manager struct {
	policy Policy
	logger *slog.Logger
}

func NewManager(policy Policy, logger *slog.Logger) *Manager {
	if policy.BaseDelay == 0 {
		policy = DefaultPolicy()
	}

	return &Manager{
		policy: policy,
		logger: logger.With("module", "exception_manager"),
	}
}

// ClassifySeverity maps an agent failure code to the exception severity.
// Transient network blips and timeouts retry automatically; data problems go
// to a human; compliance violations kill the workflow.
func ClassifySeverity(code protocol.FailureCode) models.ExceptionSeverity {
	switch code {
	case protocol.FailureTimeout, protocol.FailureTransient:
		return models.SeverityRecoverable
	case protocol.FailureNotFound, protocol.FailureInconsistent:
		return models.SeverityRequiresReview
	case protocol.FailureCompliance:
		return models.SeverityFatal
	default:
		return models.SeverityRequiresReview
	}
}

// Handle processes one failed task run. Recoverable failures under the retry
// budget get a backoff delay; exhausted retries escalate to requires_review.
// Review and fatal failures open an ExceptionRecord on the workflow.
func (m *Manager) Handle(workflow *models.Workflow, run *models.TaskRun, maxRetries int, execErr error) Decision {
	severity := ClassifySeverity(protocol.CodeOf(execErr))

	if severity == models.SeverityRecoverable {
		if run.AttemptCount < maxRetries {
			delay := m.RetryDelay(run.AttemptCount - 1)

			m.logger.Info("Retrying recoverable task failure",
				"workflow_id", workflow.ID,
				"task_run_id", run.ID,
				"attempt", run.AttemptCount,
				"delay", delay,
				"error", execErr)

			return Decision{Severity: severity, Retry: true, Delay: delay}
		}

		severity = models.SeverityRequiresReview
	}

	exception := &models.ExceptionRecord{
		ID:         fmt.Sprintf("exc-%s", uuid.NewString()),
		WorkflowID: workflow.ID,
		TaskRunID:  run.ID,
		Reason:     execErr.Error(),
		Severity:   severity,
		OpenedAt:   time.Now().UTC(),
	}
	workflow.Exceptions = append(workflow.Exceptions, exception)

	m.logger.Warn("Opened exception for task failure",
		"workflow_id", workflow.ID,
		"task_run_id", run.ID,
		"severity", severity,
		"error", execErr)

	return Decision{Severity: severity, Exception: exception}
}

// RetryDelay computes the capped exponential backoff for a zero-based attempt.
func (m *Manager) RetryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.policy.BaseDelay
	b.Multiplier = m.policy.Multiplier
	b.MaxInterval = m.policy.MaxDelay
	b.RandomizationFactor = 0

	delay := b.NextBackOff()
	for range attempt {
		delay = b.NextBackOff()
	}

	if delay > m.policy.MaxDelay || delay == backoff.Stop {
		delay = m.policy.MaxDelay
	}

	return delay
}

// Resolve closes an open exception by reviewer action. Resolution "retried"
// re-queues the task run; "overridden" marks it skipped with the note;
// "workflow_cancelled" closes the record without touching the task run.
func (m *Manager) Resolve(workflow *models.Workflow, exceptionID string, resolution models.ExceptionResolution, note string) (*models.ExceptionRecord, error) {
	exception := workflow.ExceptionByID(exceptionID)
	if exception == nil {
		return nil, ErrExceptionNotFound
	}

	if exception.ResolvedAt != nil {
		return nil, ErrExceptionResolved
	}

	run := workflow.TaskByID(exception.TaskRunID)
	if run == nil {
		return nil, fmt.Errorf("exception %s references unknown task run %s", exceptionID, exception.TaskRunID)
	}

	switch resolution {
	case models.ResolutionRetried:
		if run.Status != models.TaskStatusFailed {
			return nil, fmt.Errorf("%w: task run %s is %s", ErrTaskNotRetryable, run.ID, run.Status)
		}

		run.Status = models.TaskStatusReady
		run.ExceptionReason = ""
	case models.ResolutionOverridden:
		if run.Status.IsTerminal() {
			return nil, models.ErrTaskTerminal
		}

		now := time.Now().UTC()
		run.Status = models.TaskStatusSkipped
		run.CompletedAt = &now
	case models.ResolutionWorkflowCancelled:
		// Only the record is closed here; cancelling the workflow itself is
		// the caller's move.
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidResolution, resolution)
	}

	now := time.Now().UTC()
	exception.ResolvedAt = &now
	exception.Resolution = resolution
	exception.Note = note

	return exception, nil
}
