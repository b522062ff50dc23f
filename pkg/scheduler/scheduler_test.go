package scheduler_test

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/credentio/credentio/pkg/audit"
	"github.com/credentio/credentio/pkg/exceptions"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/persistence/file"
	"github.com/credentio/credentio/pkg/protocol"
	"github.com/credentio/credentio/pkg/registry"
	"github.com/credentio/credentio/pkg/scheduler"
	"github.com/credentio/credentio/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type agentFunc func(ctx context.Context, run models.TaskRun, ectx protocol.ExecutionContext) (map[string]any, error)

func (f agentFunc) Execute(ctx context.Context, run models.TaskRun, ectx protocol.ExecutionContext) (map[string]any, error) {
	return f(ctx, run, ectx)
}

type funcFactory struct {
	kind  models.TaskKind
	agent protocol.Agent
}

func (f funcFactory) Create(_ map[string]any) (protocol.Agent, error) {
	return f.agent, nil
}

func (f funcFactory) Kind() models.TaskKind {
	return f.kind
}

func okAgent() agentFunc {
	return func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		return map[string]any{"status": "ok"}, nil
	}
}

type fixture struct {
	scheduler *scheduler.Scheduler
	trail     *audit.Trail
	workflows *file.Persistence
}

func newFixture(t *testing.T, reg *registry.Registry, cfg scheduler.Config) *fixture {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	trail := audit.NewTrail(persistence.AuditRepository(), slog.Default())
	manager := exceptions.NewManager(exceptions.Policy{
		BaseDelay:  time.Millisecond,
		Multiplier: 2,
		MaxDelay:   10 * time.Millisecond,
	}, slog.Default())

	sched := scheduler.NewScheduler(reg, manager, trail, persistence.WorkflowRepository(), nil, cfg, slog.Default())

	return &fixture{scheduler: sched, trail: trail, workflows: persistence}
}

func executionContext() protocol.ExecutionContext {
	return protocol.ExecutionContext{
		WorkflowID: "wf-test-0001",
		Passport:   testutil.Passport(),
		Checklist:  testutil.Checklist(models.DestinationHospital),
		Results:    make(map[models.TaskKind]map[string]any),
		Logger:     slog.Default(),
	}
}

func TestScheduler_Run_HappyPath(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())
	for _, kind := range []models.TaskKind{models.TaskKindRequirements, models.TaskKindVerification, models.TaskKindAudit} {
		reg.Register(registry.Definition{Kind: kind}, funcFactory{kind: kind, agent: okAgent()})
	}

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindRequirements, models.TaskStatusPending),
		testutil.Task(models.TaskKindVerification, models.TaskStatusPending, models.TaskKindRequirements),
		testutil.Task(models.TaskKindAudit, models.TaskStatusPending, models.TaskKindRequirements, models.TaskKindVerification),
	)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)

	assert.Equal(t, scheduler.OutcomeApproved, outcome)
	assert.Equal(t, models.WorkflowStatusApproved, workflow.Status)
	assert.InDelta(t, 1.0, workflow.Progress(), 1e-9)

	for _, run := range workflow.TaskRuns {
		assert.Equal(t, models.TaskStatusSucceeded, run.Status)
		assert.Equal(t, 1, run.AttemptCount)
		require.NotNil(t, run.CompletedAt)
	}

	// The audit trail records the full lifecycle in order.
	events, err := f.trail.Events(context.Background(), workflow.ID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, models.AuditWorkflowStarted, events[0].Action)
	assert.Equal(t, models.AuditWorkflowApproved, events[len(events)-1].Action)

	// The final state is persisted.
	stored, err := f.workflows.WorkflowRepository().GetByID(context.Background(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusApproved, stored.Status)
}

func TestScheduler_Run_DispatchOrderFollowsPriority(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		order []models.TaskKind
	)

	recording := func(kind models.TaskKind) agentFunc {
		return func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
			mu.Lock()
			order = append(order, kind)
			mu.Unlock()

			return map[string]any{"status": "ok"}, nil
		}
	}

	kinds := []models.TaskKind{models.TaskKindVerification, models.TaskKindIntake, models.TaskKindRequirements}

	reg := registry.NewRegistry(slog.Default())
	for _, kind := range kinds {
		reg.Register(registry.Definition{Kind: kind}, funcFactory{kind: kind, agent: recording(kind)})
	}

	f := newFixture(t, reg, scheduler.Config{MaxInFlight: 1})

	// Three independent roots created at the same instant: with one in-flight
	// slot they must dispatch in kind priority order.
	createdAt := time.Now().UTC()
	runs := make([]*models.TaskRun, 0, len(kinds))

	for _, kind := range kinds {
		run := testutil.Task(kind, models.TaskStatusPending)
		run.CreatedAt = createdAt
		runs = append(runs, run)
	}

	workflow := testutil.Workflow(models.WorkflowStatusDraft, runs...)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)
	require.Equal(t, scheduler.OutcomeApproved, outcome)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []models.TaskKind{models.TaskKindRequirements, models.TaskKindIntake, models.TaskKindVerification}, order)
}

func TestScheduler_Run_TransientFailureRetries(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	// Two consecutive transient failures, then success on the final attempt.
	flaky := agentFunc(func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		if attempts.Add(1) <= 2 {
			return nil, protocol.NewExecutionError(protocol.FailureTransient, "connection reset", nil)
		}

		return map[string]any{"status": "ok"}, nil
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindVerification}, funcFactory{kind: models.TaskKindVerification, agent: flaky})

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindVerification, models.TaskStatusPending),
	)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)

	assert.Equal(t, scheduler.OutcomeApproved, outcome)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 3, workflow.TaskRuns[0].AttemptCount)
	assert.Empty(t, workflow.Exceptions)
}

func TestScheduler_Run_ReviewFailureParks(t *testing.T) {
	t.Parallel()

	failing := agentFunc(func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		return nil, protocol.NewExecutionError(protocol.FailureNotFound, "NPI not found in registry", nil)
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindVerification}, funcFactory{kind: models.TaskKindVerification, agent: failing})
	reg.Register(registry.Definition{Kind: models.TaskKindAudit}, funcFactory{kind: models.TaskKindAudit, agent: okAgent()})

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindVerification, models.TaskStatusPending),
		testutil.Task(models.TaskKindAudit, models.TaskStatusPending, models.TaskKindVerification),
	)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)

	assert.Equal(t, scheduler.OutcomeParked, outcome)
	assert.Equal(t, models.WorkflowStatusPendingReview, workflow.Status)
	assert.Equal(t, models.TaskStatusFailed, workflow.TaskRuns[0].Status)
	// The audit task never became ready; its dependency is unsatisfied.
	assert.Equal(t, models.TaskStatusPending, workflow.TaskRuns[1].Status)

	open := workflow.OpenExceptions()
	require.Len(t, open, 1)
	assert.Equal(t, models.SeverityRequiresReview, open[0].Severity)
	assert.Contains(t, open[0].Reason, "NPI not found")
}

func TestScheduler_Run_ResumesAfterOverride(t *testing.T) {
	t.Parallel()

	failing := agentFunc(func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		return nil, protocol.NewExecutionError(protocol.FailureInconsistent, "conflicting license records", nil)
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindVerification}, funcFactory{kind: models.TaskKindVerification, agent: failing})
	reg.Register(registry.Definition{Kind: models.TaskKindAudit}, funcFactory{kind: models.TaskKindAudit, agent: okAgent()})

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindVerification, models.TaskStatusPending),
		testutil.Task(models.TaskKindAudit, models.TaskStatusPending, models.TaskKindVerification),
	)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)
	require.Equal(t, scheduler.OutcomeParked, outcome)

	// Reviewer overrides the exception, the workflow re-enters execution.
	manager := exceptions.NewManager(exceptions.DefaultPolicy(), slog.Default())
	_, err = manager.Resolve(workflow, workflow.Exceptions[0].ID, models.ResolutionOverridden, "accepted by reviewer")
	require.NoError(t, err)
	require.NoError(t, workflow.Transition(models.WorkflowStatusInProgress))

	outcome, err = f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)

	assert.Equal(t, scheduler.OutcomeApproved, outcome)
	assert.Equal(t, models.WorkflowStatusApproved, workflow.Status)
	assert.Equal(t, models.TaskStatusSkipped, workflow.TaskRuns[0].Status)
	assert.Equal(t, models.TaskStatusSucceeded, workflow.TaskRuns[1].Status)
}

func TestScheduler_Run_ComplianceFailureRejects(t *testing.T) {
	t.Parallel()

	violating := agentFunc(func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		return nil, protocol.NewExecutionError(protocol.FailureCompliance, "unresolved sanction disclosure", nil)
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindGuardrail}, funcFactory{kind: models.TaskKindGuardrail, agent: violating})
	reg.Register(registry.Definition{Kind: models.TaskKindAudit}, funcFactory{kind: models.TaskKindAudit, agent: okAgent()})

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindGuardrail, models.TaskStatusPending),
		testutil.Task(models.TaskKindAudit, models.TaskStatusPending, models.TaskKindGuardrail),
	)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)

	assert.Equal(t, scheduler.OutcomeRejected, outcome)
	assert.Equal(t, models.WorkflowStatusRejected, workflow.Status)
	assert.Equal(t, models.TaskStatusFailed, workflow.TaskRuns[0].Status)
	// Scheduled work is swept up when the workflow dies.
	assert.Equal(t, models.TaskStatusCancelled, workflow.TaskRuns[1].Status)

	require.Len(t, workflow.Exceptions, 1)
	assert.Equal(t, models.SeverityFatal, workflow.Exceptions[0].Severity)
}

func TestScheduler_Run_TimeoutRetriesThenEscalates(t *testing.T) {
	t.Parallel()

	stuck := agentFunc(func(ctx context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{
		Kind:           models.TaskKindVerification,
		DefaultTimeout: 20 * time.Millisecond,
	}, funcFactory{kind: models.TaskKindVerification, agent: stuck})

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindVerification, models.TaskStatusPending),
	)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)

	assert.Equal(t, scheduler.OutcomeParked, outcome)
	assert.Equal(t, models.TaskStatusFailed, workflow.TaskRuns[0].Status)
	assert.Equal(t, 3, workflow.TaskRuns[0].AttemptCount)

	// Exhausted retries escalate the timeout to a reviewer.
	open := workflow.OpenExceptions()
	require.Len(t, open, 1)
	assert.Equal(t, models.SeverityRequiresReview, open[0].Severity)
	assert.Contains(t, open[0].Reason, "timeout")
}

func TestScheduler_Run_SchemaViolationParks(t *testing.T) {
	t.Parallel()

	missingStatus := agentFunc(func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		return map[string]any{"issues": []string{}}, nil
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{
		Kind:         models.TaskKindQuality,
		ResultSchema: registry.StatusResultSchema(),
	}, funcFactory{kind: models.TaskKindQuality, agent: missingStatus})

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindQuality, models.TaskStatusPending),
	)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)

	assert.Equal(t, scheduler.OutcomeParked, outcome)

	open := workflow.OpenExceptions()
	require.Len(t, open, 1)
	assert.Contains(t, open[0].Reason, "schema validation failed")
}

func TestScheduler_Run_GrowsGraphAfterQualitySuccess(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())
	for _, kind := range []models.TaskKind{models.TaskKindQuality, models.TaskKindPayerSubmission} {
		reg.Register(registry.Definition{Kind: kind}, funcFactory{kind: kind, agent: okAgent()})
	}

	var grown atomic.Bool

	grow := func(_ context.Context, workflow *models.Workflow) ([]*models.TaskRun, error) {
		if !grown.CompareAndSwap(false, true) {
			return nil, nil
		}

		leaf := testutil.Task(models.TaskKindPayerSubmission, models.TaskStatusPending, models.TaskKindQuality)
		workflow.TaskRuns = append(workflow.TaskRuns, leaf)

		return []*models.TaskRun{leaf}, nil
	}

	f := newFixture(t, reg, scheduler.Config{Grow: grow})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindQuality, models.TaskStatusPending),
	)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)

	assert.Equal(t, scheduler.OutcomeApproved, outcome)
	require.Len(t, workflow.TaskRuns, 2)
	assert.Equal(t, models.TaskKindPayerSubmission, workflow.TaskRuns[1].Kind)
	assert.Equal(t, models.TaskStatusSucceeded, workflow.TaskRuns[1].Status)
}

func TestScheduler_Run_IndependentTasksCompleteOutOfOrder(t *testing.T) {
	t.Parallel()

	verificationDone := make(chan struct{})

	// Document extraction dispatches first but returns only after verification
	// has finished, so the wave completes in the reverse of dispatch order.
	holdout := agentFunc(func(ctx context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		select {
		case <-verificationDone:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return map[string]any{"status": "ok"}, nil
	})

	quick := agentFunc(func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		defer close(verificationDone)

		return map[string]any{"status": "ok"}, nil
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindDocumentExtraction}, funcFactory{kind: models.TaskKindDocumentExtraction, agent: holdout})
	reg.Register(registry.Definition{Kind: models.TaskKindVerification}, funcFactory{kind: models.TaskKindVerification, agent: quick})
	reg.Register(registry.Definition{Kind: models.TaskKindAudit}, funcFactory{kind: models.TaskKindAudit, agent: okAgent()})

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindDocumentExtraction, models.TaskStatusPending),
		testutil.Task(models.TaskKindVerification, models.TaskStatusPending),
		testutil.Task(models.TaskKindAudit, models.TaskStatusPending, models.TaskKindDocumentExtraction, models.TaskKindVerification),
	)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)
	require.Equal(t, scheduler.OutcomeApproved, outcome)

	for _, run := range workflow.TaskRuns {
		assert.Equal(t, models.TaskStatusSucceeded, run.Status)
		assert.Equal(t, 1, run.AttemptCount)
	}

	// No task starts before every dependency has completed, whatever order the
	// dependencies landed in.
	for _, run := range workflow.TaskRuns {
		require.NotNil(t, run.StartedAt)

		for _, dep := range run.DependsOn {
			for _, depRun := range workflow.TasksByKind(dep) {
				require.NotNil(t, depRun.CompletedAt)
				assert.False(t, run.StartedAt.Before(*depRun.CompletedAt),
					"%s started at %s before dependency %s completed at %s",
					run.Kind, run.StartedAt, depRun.Kind, depRun.CompletedAt)
			}
		}
	}
}

func TestScheduler_Run_ProgressNeverDecreases(t *testing.T) {
	t.Parallel()

	kinds := []models.TaskKind{models.TaskKindRequirements, models.TaskKindIntake, models.TaskKindVerification, models.TaskKindAudit}

	reg := registry.NewRegistry(slog.Default())
	for _, kind := range kinds {
		reg.Register(registry.Definition{Kind: kind}, funcFactory{kind: kind, agent: okAgent()})
	}

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindRequirements, models.TaskStatusPending),
		testutil.Task(models.TaskKindIntake, models.TaskStatusPending, models.TaskKindRequirements),
		testutil.Task(models.TaskKindVerification, models.TaskStatusPending, models.TaskKindIntake),
		testutil.Task(models.TaskKindAudit, models.TaskStatusPending, models.TaskKindVerification),
	)

	outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
	require.NoError(t, err)
	require.Equal(t, scheduler.OutcomeApproved, outcome)

	events, err := f.trail.Events(context.Background(), workflow.ID)
	require.NoError(t, err)

	var progress []float64

	for _, event := range events {
		if event.Action != models.AuditTaskSucceeded {
			continue
		}

		value, ok := event.Details["progress"].(float64)
		require.True(t, ok, "success event missing progress detail")
		progress = append(progress, value)
	}

	require.Len(t, progress, len(kinds))

	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}

	assert.InDelta(t, 1.0, progress[len(progress)-1], 1e-9)
}

func TestScheduler_Run_CancelDiscardsDrainedInFlightRun(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	gate := make(chan struct{})

	blocked := agentFunc(func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		close(started)
		<-gate

		return map[string]any{"status": "ok"}, nil
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindRequirements}, funcFactory{kind: models.TaskKindRequirements, agent: blocked})

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindRequirements, models.TaskStatusPending),
	)

	type result struct {
		outcome scheduler.Outcome
		err     error
	}

	done := make(chan result, 1)

	go func() {
		outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
		done <- result{outcome: outcome, err: err}
	}()

	<-started

	// Cancellation lands through the loop while the agent call is in flight.
	ran, err := f.scheduler.Execute(workflow.ID, func() error {
		f.scheduler.RequestCancel(workflow.ID)

		return f.scheduler.ApplyCancel(context.Background(), workflow)
	})
	require.NoError(t, err)
	require.True(t, ran)

	close(gate)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, scheduler.OutcomeCancelled, res.outcome)
	assert.Equal(t, models.WorkflowStatusRejected, workflow.Status)

	// The drained result is discarded and the run closed out, never succeeded.
	assert.Equal(t, models.TaskStatusCancelled, workflow.TaskRuns[0].Status)

	events, err := f.trail.Events(context.Background(), workflow.ID)
	require.NoError(t, err)

	actions := make([]string, 0, len(events))
	for _, event := range events {
		actions = append(actions, event.Action)
	}

	assert.Contains(t, actions, models.AuditTaskDiscarded)
	assert.NotContains(t, actions, models.AuditTaskSucceeded)
}

func TestScheduler_Run_AbortedRunFreesInFlightSlot(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	stuck := agentFunc(func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		close(started)
		<-release

		return map[string]any{"status": "ok"}, nil
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindVerification}, funcFactory{kind: models.TaskKindVerification, agent: stuck})
	reg.Register(registry.Definition{Kind: models.TaskKindRequirements}, funcFactory{kind: models.TaskKindRequirements, agent: okAgent()})

	f := newFixture(t, reg, scheduler.Config{MaxInFlight: 1})

	first := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindVerification, models.TaskStatusPending),
	)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	type result struct {
		outcome scheduler.Outcome
		err     error
	}

	firstDone := make(chan result, 1)

	go func() {
		outcome, err := f.scheduler.Run(runCtx, first, executionContext())
		firstDone <- result{outcome: outcome, err: err}
	}()

	<-started
	cancelRun()

	res := <-firstDone
	assert.Equal(t, scheduler.OutcomeParked, res.outcome)

	// The single in-flight slot must come back even though the aborted run's
	// result was abandoned; a second workflow would otherwise never dispatch.
	second := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindRequirements, models.TaskStatusPending),
	)
	second.ID = "wf-test-0002"

	for _, run := range second.TaskRuns {
		run.WorkflowID = second.ID
	}

	secondDone := make(chan result, 1)

	go func() {
		outcome, err := f.scheduler.Run(context.Background(), second, executionContext())
		secondDone <- result{outcome: outcome, err: err}
	}()

	select {
	case res := <-secondDone:
		require.NoError(t, res.err)
		assert.Equal(t, scheduler.OutcomeApproved, res.outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight slot was never released after the aborted run")
	}
}

func TestScheduler_Reserve_SerializesEarlyOperations(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})

	blocked := agentFunc(func(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
		<-gate

		return map[string]any{"status": "ok"}, nil
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindRequirements}, funcFactory{kind: models.TaskKindRequirements, agent: blocked})

	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusDraft,
		testutil.Task(models.TaskKindRequirements, models.TaskStatusPending),
	)

	// Reserving before the loop goroutine starts means Execute already routes
	// through the loop instead of reporting no loop.
	f.scheduler.Reserve(workflow.ID)
	require.True(t, f.scheduler.Active(workflow.ID))

	type result struct {
		outcome scheduler.Outcome
		err     error
	}

	done := make(chan result, 1)

	go func() {
		outcome, err := f.scheduler.Run(context.Background(), workflow, executionContext())
		done <- result{outcome: outcome, err: err}
	}()

	var status models.WorkflowStatus

	ran, err := f.scheduler.Execute(workflow.ID, func() error {
		status = workflow.Status

		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, models.WorkflowStatusInProgress, status)

	close(gate)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, scheduler.OutcomeApproved, res.outcome)
}

func TestScheduler_ApplyCancel(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())
	f := newFixture(t, reg, scheduler.Config{})

	workflow := testutil.Workflow(models.WorkflowStatusInProgress,
		testutil.Task(models.TaskKindVerification, models.TaskStatusReady),
		testutil.Task(models.TaskKindAudit, models.TaskStatusPending, models.TaskKindVerification),
	)

	require.NoError(t, f.scheduler.ApplyCancel(context.Background(), workflow))

	assert.Equal(t, models.WorkflowStatusRejected, workflow.Status)
	assert.NotNil(t, workflow.CancelledAt)

	for _, run := range workflow.TaskRuns {
		assert.Equal(t, models.TaskStatusCancelled, run.Status)
	}
}

func TestScheduler_Execute_NoActiveLoop(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())
	f := newFixture(t, reg, scheduler.Config{})

	ran, err := f.scheduler.Execute("wf-missing", func() error { return nil })
	require.NoError(t, err)
	assert.False(t, ran)
	assert.False(t, f.scheduler.Active("wf-missing"))
}
