package models

import "time"

// ExceptionSeverity classifies how a task failure must be handled.
type ExceptionSeverity string

const (
	SeverityRecoverable    ExceptionSeverity = "recoverable"
	SeverityRequiresReview ExceptionSeverity = "requires_review"
	SeverityFatal          ExceptionSeverity = "fatal"
)

// ExceptionResolution records how an open exception was closed.
type ExceptionResolution string

const (
	ResolutionRetried           ExceptionResolution = "retried"
	ResolutionOverridden        ExceptionResolution = "overridden"
	ResolutionWorkflowCancelled ExceptionResolution = "workflow_cancelled"
)

// ExceptionRecord is a flagged task failure requiring automated retry or human
// resolution. It is owned by the exception manager; its lifetime ends when it is
// resolved or the workflow terminates.
type ExceptionRecord struct {
	ID         string              `json:"id"`
	WorkflowID string              `json:"workflow_id"`
	TaskRunID  string              `json:"task_run_id"`
	Reason     string              `json:"reason"`
	Severity   ExceptionSeverity   `json:"severity"`
	OpenedAt   time.Time           `json:"opened_at"`
	ResolvedAt *time.Time          `json:"resolved_at,omitempty"`
	Resolution ExceptionResolution `json:"resolution,omitempty"`
	Note       string              `json:"note,omitempty"`
}
