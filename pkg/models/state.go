package models

import (
	"fmt"
	"slices"
)

// validTransitions encodes the workflow state machine. Rejected and completed
// are terminal; completed is reachable only from approved after the evidence
// bundle has been built.
var validTransitions = map[WorkflowStatus][]WorkflowStatus{
	WorkflowStatusDraft:         {WorkflowStatusInProgress, WorkflowStatusRejected},
	WorkflowStatusInProgress:    {WorkflowStatusPendingReview, WorkflowStatusApproved, WorkflowStatusRejected},
	WorkflowStatusPendingReview: {WorkflowStatusInProgress, WorkflowStatusRejected},
	WorkflowStatusApproved:      {WorkflowStatusCompleted},
	WorkflowStatusRejected:      {},
	WorkflowStatusCompleted:     {},
}

// CanTransition reports whether the state machine allows moving from one
// workflow status to another.
func CanTransition(from, to WorkflowStatus) bool {
	return slices.Contains(validTransitions[from], to)
}

// Transition moves the workflow to the given status, enforcing the state machine.
func (w *Workflow) Transition(to WorkflowStatus) error {
	if w.Status == to {
		return nil
	}

	if !CanTransition(w.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, to)
	}

	w.Status = to

	return nil
}
