package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    WorkflowStatus
		to      WorkflowStatus
		allowed bool
	}{
		{"draft to in_progress", WorkflowStatusDraft, WorkflowStatusInProgress, true},
		{"draft to rejected", WorkflowStatusDraft, WorkflowStatusRejected, true},
		{"draft to approved", WorkflowStatusDraft, WorkflowStatusApproved, false},
		{"in_progress to pending_review", WorkflowStatusInProgress, WorkflowStatusPendingReview, true},
		{"in_progress to approved", WorkflowStatusInProgress, WorkflowStatusApproved, true},
		{"in_progress to completed", WorkflowStatusInProgress, WorkflowStatusCompleted, false},
		{"pending_review back to in_progress", WorkflowStatusPendingReview, WorkflowStatusInProgress, true},
		{"pending_review to rejected", WorkflowStatusPendingReview, WorkflowStatusRejected, true},
		{"pending_review to approved", WorkflowStatusPendingReview, WorkflowStatusApproved, false},
		{"approved to completed", WorkflowStatusApproved, WorkflowStatusCompleted, true},
		{"approved to rejected", WorkflowStatusApproved, WorkflowStatusRejected, false},
		{"rejected is terminal", WorkflowStatusRejected, WorkflowStatusInProgress, false},
		{"completed is terminal", WorkflowStatusCompleted, WorkflowStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestWorkflow_Transition(t *testing.T) {
	t.Parallel()

	workflow := &Workflow{Status: WorkflowStatusDraft}

	require.NoError(t, workflow.Transition(WorkflowStatusInProgress))
	assert.Equal(t, WorkflowStatusInProgress, workflow.Status)

	// Same-state transitions are no-ops.
	require.NoError(t, workflow.Transition(WorkflowStatusInProgress))

	err := workflow.Transition(WorkflowStatusCompleted)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, WorkflowStatusInProgress, workflow.Status)
}

func TestWorkflowStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, WorkflowStatusRejected.IsTerminal())
	assert.True(t, WorkflowStatusCompleted.IsTerminal())
	assert.False(t, WorkflowStatusDraft.IsTerminal())
	assert.False(t, WorkflowStatusInProgress.IsTerminal())
	assert.False(t, WorkflowStatusPendingReview.IsTerminal())
	assert.False(t, WorkflowStatusApproved.IsTerminal())
}

func TestTaskStatus_Satisfies(t *testing.T) {
	t.Parallel()

	assert.True(t, TaskStatusSucceeded.Satisfies())
	assert.True(t, TaskStatusSkipped.Satisfies())
	assert.False(t, TaskStatusCancelled.Satisfies())
	assert.False(t, TaskStatusFailed.Satisfies())
	assert.False(t, TaskStatusPending.Satisfies())
	assert.False(t, TaskStatusRunning.Satisfies())
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, TaskStatusSucceeded.IsTerminal())
	assert.True(t, TaskStatusSkipped.IsTerminal())
	assert.True(t, TaskStatusCancelled.IsTerminal())
	// Failed tasks can be retried or overridden, so failure is not terminal.
	assert.False(t, TaskStatusFailed.IsTerminal())
	assert.False(t, TaskStatusReady.IsTerminal())
}

func TestTaskKind_Priority(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, TaskKindRequirements.Priority())
	assert.Less(t, TaskKindIntake.Priority(), TaskKindQuality.Priority())
	assert.Less(t, TaskKindVerification.Priority(), TaskKindPayerSubmission.Priority())
	assert.Equal(t, 7, TaskKindAudit.Priority())
	assert.Equal(t, 8, TaskKind("unknown").Priority())
}

func TestWorkflow_KindSatisfied(t *testing.T) {
	t.Parallel()

	workflow := &Workflow{
		TaskRuns: []*TaskRun{
			{ID: "t1", Kind: TaskKindIntake, Status: TaskStatusSucceeded},
			{ID: "t2", Kind: TaskKindQuality, Status: TaskStatusRunning},
		},
	}

	assert.True(t, workflow.KindSatisfied(TaskKindIntake))
	assert.False(t, workflow.KindSatisfied(TaskKindQuality))
	// Kinds absent from the graph were covered at build time.
	assert.True(t, workflow.KindSatisfied(TaskKindVerification))
}

func TestWorkflow_Progress(t *testing.T) {
	t.Parallel()

	empty := &Workflow{}
	assert.Zero(t, empty.Progress())

	workflow := &Workflow{
		TaskRuns: []*TaskRun{
			{ID: "t1", Status: TaskStatusSucceeded},
			{ID: "t2", Status: TaskStatusSkipped},
			{ID: "t3", Status: TaskStatusRunning},
			{ID: "t4", Status: TaskStatusPending},
		},
	}

	assert.InDelta(t, 0.5, workflow.Progress(), 1e-9)
}

func TestWorkflow_OpenExceptions(t *testing.T) {
	t.Parallel()

	resolved := time.Now().UTC()
	workflow := &Workflow{
		Exceptions: []*ExceptionRecord{
			{ID: "exc-1"},
			{ID: "exc-2", ResolvedAt: &resolved},
			{ID: "exc-3"},
		},
	}

	open := workflow.OpenExceptions()
	require.Len(t, open, 2)
	assert.Equal(t, "exc-1", open[0].ID)
	assert.Equal(t, "exc-3", open[1].ID)

	assert.NotNil(t, workflow.ExceptionByID("exc-2"))
	assert.Nil(t, workflow.ExceptionByID("exc-9"))
}

func TestDestinationType_Valid(t *testing.T) {
	t.Parallel()

	for _, d := range []DestinationType{DestinationHospital, DestinationGroup, DestinationStaffingFirm, DestinationTelehealth} {
		assert.True(t, d.Valid())
	}

	assert.False(t, DestinationType("clinic").Valid())
	assert.False(t, DestinationType("").Valid())
}
