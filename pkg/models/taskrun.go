// Package models defines the core domain models for credentialing workflow orchestration.
package models

import "time"

// TaskKind identifies the agent responsible for a scheduled unit of work.
type TaskKind string

const (
	TaskKindRequirements       TaskKind = "requirements"
	TaskKindIntake             TaskKind = "intake"
	TaskKindDocumentExtraction TaskKind = "document_extraction"
	TaskKindQuality            TaskKind = "quality"
	TaskKindVerification       TaskKind = "verification"
	TaskKindPayerSubmission    TaskKind = "payer_submission"
	TaskKindGuardrail          TaskKind = "guardrail"
	TaskKindAudit              TaskKind = "audit"
)

// kindPriority orders dispatch when more tasks are ready than in-flight slots allow.
// Lower value dispatches first.
var kindPriority = map[TaskKind]int{
	TaskKindRequirements:       0,
	TaskKindIntake:             1,
	TaskKindDocumentExtraction: 2,
	TaskKindQuality:            3,
	TaskKindVerification:       4,
	TaskKindPayerSubmission:    5,
	TaskKindGuardrail:          6,
	TaskKindAudit:              7,
}

// Priority returns the dispatch priority of the kind. Unknown kinds sort last.
func (k TaskKind) Priority() int {
	p, ok := kindPriority[k]
	if !ok {
		return len(kindPriority)
	}

	return p
}

// TaskStatus defines the possible states of a task run.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusReady     TaskStatus = "ready"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusSkipped   TaskStatus = "skipped"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the status ends the task's lifecycle. A failed task
// is not terminal because retry or reviewer action may re-queue it.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusSkipped, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Satisfies reports whether a dependency in this status unblocks its dependents.
func (s TaskStatus) Satisfies() bool {
	return s == TaskStatusSucceeded || s == TaskStatusSkipped
}

// TaskRun is one scheduled unit of work corresponding to a single agent kind.
type TaskRun struct {
	ID              string         `json:"id"           validate:"required"`
	WorkflowID      string         `json:"workflow_id"  validate:"required"`
	Kind            TaskKind       `json:"kind"         validate:"required"`
	DependsOn       []TaskKind     `json:"depends_on"`
	Status          TaskStatus     `json:"status"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	AttemptCount    int            `json:"attempt_count"`
	Result          map[string]any `json:"result,omitempty"`
	ExceptionReason string         `json:"exception_reason,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}
