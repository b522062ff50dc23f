package models

import "time"

// WorkflowStatus represents the lifecycle state of a credentialing workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft         WorkflowStatus = "draft"
	WorkflowStatusInProgress    WorkflowStatus = "in_progress"
	WorkflowStatusPendingReview WorkflowStatus = "pending_review"
	WorkflowStatusApproved      WorkflowStatus = "approved"
	WorkflowStatusRejected      WorkflowStatus = "rejected"
	WorkflowStatusCompleted     WorkflowStatus = "completed"
)

// IsTerminal reports whether no further transitions are allowed from the status.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowStatusRejected || s == WorkflowStatusCompleted
}

// Workflow is one end-to-end credentialing run for a clinician against one destination.
type Workflow struct {
	ID               string             `json:"id"`
	ClinicianID      string             `json:"clinician_id"     validate:"required"`
	DestinationID    string             `json:"destination_id"   validate:"required"`
	DestinationType  DestinationType    `json:"destination_type" validate:"required"`
	Status           WorkflowStatus     `json:"status"`
	TaskRuns         []*TaskRun         `json:"task_runs"`
	Exceptions       []*ExceptionRecord `json:"exceptions"`
	EvidenceBundleID string             `json:"evidence_bundle_id,omitempty"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// TaskByID returns the task run with the given ID, or nil.
func (w *Workflow) TaskByID(id string) *TaskRun {
	for _, run := range w.TaskRuns {
		if run.ID == id {
			return run
		}
	}

	return nil
}

// TasksByKind returns every task run of the given kind in creation order.
func (w *Workflow) TasksByKind(kind TaskKind) []*TaskRun {
	var runs []*TaskRun

	for _, run := range w.TaskRuns {
		if run.Kind == kind {
			runs = append(runs, run)
		}
	}

	return runs
}

// KindSatisfied reports whether a dependency on the given kind is satisfied.
// A kind with no task runs in the graph was satisfied at build time (for example
// by a still-valid prior verification) and never blocks dependents.
func (w *Workflow) KindSatisfied(kind TaskKind) bool {
	for _, run := range w.TaskRuns {
		if run.Kind == kind && !run.Status.Satisfies() {
			return false
		}
	}

	return true
}

// Progress returns the completion fraction in [0, 1]: task runs in a satisfying
// terminal state over all task runs in the graph.
func (w *Workflow) Progress() float64 {
	if len(w.TaskRuns) == 0 {
		return 0
	}

	done := 0

	for _, run := range w.TaskRuns {
		if run.Status.Satisfies() {
			done++
		}
	}

	return float64(done) / float64(len(w.TaskRuns))
}

// OpenExceptions returns the exceptions that have not been resolved yet.
func (w *Workflow) OpenExceptions() []*ExceptionRecord {
	var open []*ExceptionRecord

	for _, ex := range w.Exceptions {
		if ex.ResolvedAt == nil {
			open = append(open, ex)
		}
	}

	return open
}

// ExceptionByID returns the exception record with the given ID, or nil.
func (w *Workflow) ExceptionByID(id string) *ExceptionRecord {
	for _, ex := range w.Exceptions {
		if ex.ID == id {
			return ex
		}
	}

	return nil
}
