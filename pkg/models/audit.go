package models

import "time"

// Audit actions recorded by the orchestrator. Every state-changing operation
// appends exactly one event before returning to its caller.
const (
	AuditWorkflowCreated    = "workflow.created"
	AuditWorkflowStarted    = "workflow.started"
	AuditWorkflowApproved   = "workflow.approved"
	AuditWorkflowRejected   = "workflow.rejected"
	AuditWorkflowCancelled  = "workflow.cancelled"
	AuditWorkflowCompleted  = "workflow.completed"
	AuditStatusChanged      = "workflow.status_changed"
	AuditTaskDispatched     = "task.dispatched"
	AuditTaskSucceeded      = "task.succeeded"
	AuditTaskFailed         = "task.failed"
	AuditTaskRetried        = "task.retried"
	AuditTaskSkipped        = "task.skipped"
	AuditTaskCancelled      = "task.cancelled"
	AuditTaskDiscarded      = "task.result_discarded"
	AuditTaskAppended       = "task.appended"
	AuditExceptionOpened    = "exception.opened"
	AuditExceptionResolved  = "exception.resolved"
	AuditEvidenceBuilt      = "evidence_bundle.created"
	AuditEvidenceFailed     = "evidence_bundle.failed"
)

// AuditEvent is an append-only record of one state change. Events are strictly
// ordered per workflow by Seq; they are never mutated or deleted.
type AuditEvent struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Seq        int64          `json:"seq"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	PayloadRef string         `json:"payload_ref,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
