package models

import "time"

// FieldEvidence links one passport field to the task run that last verified it.
type FieldEvidence struct {
	Field      string    `json:"field"`
	TaskRunID  string    `json:"task_run_id"`
	Kind       TaskKind  `json:"kind"`
	VerifiedAt time.Time `json:"verified_at"`
	Source     string    `json:"source,omitempty"`
}

// EvidenceBundle is the provenance-linked record proving which verification
// backed each passport field, together with the full ordered audit sequence.
// A bundle is immutable once built; a new workflow run produces a new bundle.
type EvidenceBundle struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	ClinicianID string          `json:"clinician_id"`
	Fields      []FieldEvidence `json:"fields"`
	AuditTrail  []*AuditEvent   `json:"audit_trail"`
	GeneratedAt time.Time       `json:"generated_at"`
}
