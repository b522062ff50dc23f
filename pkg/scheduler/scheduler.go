// Package scheduler executes a workflow's task DAG in topological waves: at
// any instant every pending task whose dependencies are satisfied becomes
// ready, and ready tasks dispatch concurrently up to a process-wide in-flight
// limit. The scheduler never decides retry policy itself; failures are handed
// to the exception manager.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/credentio/credentio/pkg/audit"
	"github.com/credentio/credentio/pkg/eventbus"
	"github.com/credentio/credentio/pkg/events"
	"github.com/credentio/credentio/pkg/exceptions"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/otelhelper"
	"github.com/credentio/credentio/pkg/persistence"
	"github.com/credentio/credentio/pkg/protocol"
	"github.com/credentio/credentio/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxInFlight bounds concurrent agent calls across the whole process,
// not per workflow, to avoid overwhelming external verification services.
const DefaultMaxInFlight = 8

// Outcome reports how one Run invocation ended.
type Outcome string

const (
	// OutcomeApproved means every task run finished in a satisfying state.
	OutcomeApproved Outcome = "approved"
	// OutcomeParked means execution stopped with open exceptions awaiting a
	// reviewer; Run is invoked again after resolution.
	OutcomeParked Outcome = "parked"
	// OutcomeRejected means a fatal exception terminated the workflow.
	OutcomeRejected Outcome = "rejected"
	// OutcomeCancelled means cancellation was requested and applied.
	OutcomeCancelled Outcome = "cancelled"
)

// GrowFunc re-evaluates the DAG after a quality task succeeds and returns any
// leaf task runs it appended.
type GrowFunc func(ctx context.Context, workflow *models.Workflow) ([]*models.TaskRun, error)

// Config tunes one scheduler instance.
type Config struct {
	MaxInFlight int64
	Grow        GrowFunc
	// Tracer, when set, wraps every agent execution in a span.
	Tracer trace.Tracer
}

type Scheduler struct {
	registry   *registry.Registry
	exceptions *exceptions.Manager
	trail      *audit.Trail
	workflows  persistence.WorkflowRepository
	publisher  eventbus.EventPublisher
	grow       GrowFunc
	tracer     trace.Tracer
	sem        *semaphore.Weighted
	logger     *slog.Logger

	mu      sync.Mutex
	loops   map[string]*loopHandle
	cancels map[string]bool
}

type loopHandle struct {
	commands chan loopCommand
	done     chan struct{}
}

func newLoopHandle() *loopHandle {
	return &loopHandle{
		commands: make(chan loopCommand),
		done:     make(chan struct{}),
	}
}

type loopCommand struct {
	fn    func() error
	reply chan error
}

// loopState is the per-Run bookkeeping. Only the channels and done are shared
// with agent goroutines; the counters never escape the loop goroutine.
type loopState struct {
	inFlight       int
	pendingRetries int
	fatal          bool
	completions    chan completion
	retries        chan *models.TaskRun
	// done is the loop handle's done channel. Agent goroutines and retry
	// timers select on it so a loop that returned early never strands a
	// sender or an in-flight semaphore slot.
	done chan struct{}
}

type completion struct {
	run     *models.TaskRun
	attempt int
	result  map[string]any
	err     error
}

func NewScheduler(
	reg *registry.Registry,
	manager *exceptions.Manager,
	trail *audit.Trail,
	workflows persistence.WorkflowRepository,
	publisher eventbus.EventPublisher,
	cfg Config,
	logger *slog.Logger,
) *Scheduler {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}

	return &Scheduler{
		registry:   reg,
		exceptions: manager,
		trail:      trail,
		workflows:  workflows,
		publisher:  publisher,
		grow:       cfg.Grow,
		tracer:     cfg.Tracer,
		sem:        semaphore.NewWeighted(cfg.MaxInFlight),
		logger:     logger.With("module", "scheduler"),
		loops:      make(map[string]*loopHandle),
		cancels:    make(map[string]bool),
	}
}

// Run drives the workflow until it is approved, parked on open exceptions,
// rejected, or cancelled. One Run loop owns all mutation of the workflow while
// it is active; concurrent operations enter through Execute.
func (s *Scheduler) Run(ctx context.Context, workflow *models.Workflow, ectx protocol.ExecutionContext) (Outcome, error) {
	s.mu.Lock()
	handle, ok := s.loops[workflow.ID]
	if !ok {
		handle = newLoopHandle()
		s.loops[workflow.ID] = handle
	}
	s.mu.Unlock()
	defer s.unregister(workflow.ID, handle)

	if ectx.Results == nil {
		ectx.Results = make(map[models.TaskKind]map[string]any)
	}

	if workflow.Status == models.WorkflowStatusDraft {
		err := s.transition(ctx, workflow, models.WorkflowStatusInProgress, models.AuditWorkflowStarted, nil)
		if err != nil {
			return OutcomeParked, err
		}

		s.publish(ctx, workflow.ID, events.WorkflowStarted{
			BaseEvent: s.baseEvent(events.WorkflowStartedEvent, workflow.ID),
		})
	}

	state := &loopState{
		completions: make(chan completion),
		retries:     make(chan *models.TaskRun),
		done:        handle.done,
	}

	for {
		if !state.fatal && !s.cancelRequested(workflow.ID) && !workflow.Status.IsTerminal() {
			promote(workflow)

			if err := s.dispatch(ctx, workflow, ectx, state, false); err != nil {
				return OutcomeParked, err
			}
		}

		if state.inFlight == 0 && state.pendingRetries == 0 {
			if s.cancelRequested(workflow.ID) {
				if !workflow.Status.IsTerminal() {
					if err := s.ApplyCancel(ctx, workflow); err != nil {
						return OutcomeParked, err
					}
				}

				return OutcomeCancelled, nil
			}

			if state.fatal {
				return OutcomeRejected, nil
			}

			if allSatisfied(workflow) {
				if err := s.approve(ctx, workflow); err != nil {
					return OutcomeParked, err
				}

				return OutcomeApproved, nil
			}

			if len(readyRuns(workflow)) > 0 {
				// The in-flight budget is consumed by other workflows;
				// block on one slot rather than spin.
				if err := s.dispatch(ctx, workflow, ectx, state, true); err != nil {
					return OutcomeParked, err
				}

				continue
			}

			if len(workflow.OpenExceptions()) == 0 {
				s.logger.Warn("Workflow blocked without open exceptions",
					"workflow_id", workflow.ID)
			}

			return OutcomeParked, nil
		}

		select {
		case c := <-state.completions:
			state.inFlight--

			if err := s.complete(ctx, workflow, ectx, state, c); err != nil {
				return OutcomeParked, err
			}
		case run := <-state.retries:
			state.pendingRetries--

			if err := s.requeue(ctx, workflow, state, run); err != nil {
				return OutcomeParked, err
			}
		case cmd := <-handle.commands:
			cmd.reply <- cmd.fn()
		case <-ctx.Done():
			return OutcomeParked, ctx.Err()
		}
	}
}

// Execute runs fn inside the workflow's active scheduling loop, serialized
// with task completions. It reports false when no loop is active and the
// caller must apply fn under its own lock.
func (s *Scheduler) Execute(workflowID string, fn func() error) (bool, error) {
	s.mu.Lock()
	handle, ok := s.loops[workflowID]
	s.mu.Unlock()

	if !ok {
		return false, nil
	}

	cmd := loopCommand{fn: fn, reply: make(chan error, 1)}

	select {
	case handle.commands <- cmd:
		return true, <-cmd.reply
	case <-handle.done:
		return false, nil
	}
}

// RequestCancel flips the cooperative cancellation flag. An active loop stops
// dispatching, lets in-flight calls drain with their results discarded, and
// finalizes the cancellation itself.
func (s *Scheduler) RequestCancel(workflowID string) {
	s.mu.Lock()
	s.cancels[workflowID] = true
	s.mu.Unlock()
}

// Active reports whether a scheduling loop currently owns the workflow.
func (s *Scheduler) Active(workflowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.loops[workflowID]

	return ok
}

// ApplyCancel marks every pending and ready task run cancelled and moves the
// workflow to rejected. Callers use it directly only when no loop is active.
func (s *Scheduler) ApplyCancel(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	cancelled := cancelScheduled(workflow)
	workflow.CancelledAt = &now

	if err := workflow.Transition(models.WorkflowStatusRejected); err != nil {
		return err
	}

	_, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditWorkflowCancelled, "", map[string]any{
		"cancelled_tasks": cancelled,
	})
	if err != nil {
		return err
	}

	s.publish(ctx, workflow.ID, events.WorkflowRejected{
		BaseEvent: s.baseEvent(events.WorkflowRejectedEvent, workflow.ID),
		Reason:    "cancelled",
	})

	return s.workflows.Save(ctx, workflow)
}

// Reserve registers the workflow's loop handle before Run is started in its
// own goroutine. Operations arriving in the window between the caller spawning
// Run and the loop reaching its select then serialize through Execute instead
// of mutating the workflow concurrently with the loop. Run adopts a reserved
// handle.
func (s *Scheduler) Reserve(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loops[workflowID]; !ok {
		s.loops[workflowID] = newLoopHandle()
	}
}

func (s *Scheduler) unregister(workflowID string, handle *loopHandle) {
	s.mu.Lock()
	delete(s.loops, workflowID)
	delete(s.cancels, workflowID)
	s.mu.Unlock()

	close(handle.done)
}

func (s *Scheduler) cancelRequested(workflowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancels[workflowID]
}

// promote moves every pending task run whose dependencies are all satisfied
// into the ready set. A dependency kind with no runs in the graph was covered
// at build time and never blocks.
func promote(workflow *models.Workflow) {
	for _, run := range workflow.TaskRuns {
		if run.Status != models.TaskStatusPending {
			continue
		}

		blocked := false

		for _, dep := range run.DependsOn {
			if !workflow.KindSatisfied(dep) {
				blocked = true

				break
			}
		}

		if !blocked {
			run.Status = models.TaskStatusReady
		}
	}
}

// dispatch starts as many ready task runs as the in-flight budget allows,
// FIFO by creation time with ties broken by kind priority. Runs beyond the
// budget stay ready. With block set, it waits for one slot before starting
// the first run.
func (s *Scheduler) dispatch(ctx context.Context, workflow *models.Workflow, ectx protocol.ExecutionContext, state *loopState, block bool) error {
	ready := readyRuns(workflow)

	dirty := false

	for i, run := range ready {
		if block && i == 0 {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return err
			}
		} else if !s.sem.TryAcquire(1) {
			break
		}

		if err := s.start(ctx, workflow, run, ectx, state); err != nil {
			s.sem.Release(1)

			return err
		}

		dirty = true
	}

	if dirty {
		return s.workflows.Save(ctx, workflow)
	}

	return nil
}

func (s *Scheduler) start(ctx context.Context, workflow *models.Workflow, run *models.TaskRun, ectx protocol.ExecutionContext, state *loopState) error {
	def, ok := s.registry.Definition(run.Kind)
	if !ok {
		return fmt.Errorf("task kind '%s' not registered", run.Kind)
	}

	agent, err := s.registry.CreateAgent(run.Kind, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s agent: %w", run.Kind, err)
	}

	now := time.Now().UTC()
	run.Status = models.TaskStatusRunning
	run.StartedAt = &now
	run.AttemptCount++

	_, err = s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditTaskDispatched, run.ID, map[string]any{
		"kind":    string(run.Kind),
		"attempt": run.AttemptCount,
	})
	if err != nil {
		return err
	}

	s.publish(ctx, workflow.ID, events.TaskDispatched{
		BaseEvent: s.baseEvent(events.TaskDispatchedEvent, workflow.ID),
		TaskRunID: run.ID,
		Kind:      run.Kind,
		Attempt:   run.AttemptCount,
	})

	s.logger.Info("Dispatched task run",
		"workflow_id", workflow.ID,
		"task_run_id", run.ID,
		"kind", run.Kind,
		"attempt", run.AttemptCount)

	state.inFlight++

	attempt := run.AttemptCount
	snapshot := *run
	agentCtx := ectx.WithLogger(s.logger.With("task_run_id", run.ID, "kind", run.Kind))

	workflowID := workflow.ID

	go func() {
		defer s.sem.Release(1)

		tctx, cancel := context.WithTimeout(ctx, def.DefaultTimeout)
		defer cancel()

		var span trace.Span
		if s.tracer != nil {
			tctx, span = otelhelper.StartSpan(tctx, s.tracer, "task.execute",
				attribute.String(otelhelper.WorkflowIDKey, workflowID),
				attribute.String(otelhelper.TaskRunIDKey, snapshot.ID),
				attribute.String(otelhelper.TaskKindKey, string(snapshot.Kind)))
			defer span.End()
		}

		type agentResult struct {
			result map[string]any
			err    error
		}

		resCh := make(chan agentResult, 1)

		go func() {
			result, execErr := agent.Execute(tctx, snapshot, agentCtx)
			resCh <- agentResult{result: result, err: execErr}
		}()

		// The timeout is enforced here independently of the agent's own
		// behavior: a stuck agent does not stall the wave.
		select {
		case r := <-resCh:
			if r.err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
				r.err = protocol.NewExecutionError(protocol.FailureTimeout,
					fmt.Sprintf("%s agent exceeded %s timeout", run.Kind, def.DefaultTimeout), r.err)
			}

			if span != nil && r.err != nil {
				otelhelper.SetError(span, r.err)
			}

			// The loop may have returned before receiving this completion;
			// abandoning the send lets the deferred release return the
			// in-flight slot.
			select {
			case state.completions <- completion{run: run, attempt: attempt, result: r.result, err: r.err}:
			case <-state.done:
			}
		case <-tctx.Done():
			failure := tctx.Err()
			if errors.Is(failure, context.DeadlineExceeded) {
				failure = protocol.NewExecutionError(protocol.FailureTimeout,
					fmt.Sprintf("%s agent exceeded %s timeout", run.Kind, def.DefaultTimeout), nil)
			}

			if span != nil {
				otelhelper.SetError(span, failure)
			}

			select {
			case state.completions <- completion{run: run, attempt: attempt, err: failure}:
			case <-state.done:
			}
		}
	}()

	return nil
}

func (s *Scheduler) complete(ctx context.Context, workflow *models.Workflow, ectx protocol.ExecutionContext, state *loopState, c completion) error {
	run := c.run

	// Late timeout results and results arriving after cancellation or a fatal
	// transition are discarded without moving the workflow forward. A run whose
	// current attempt drains into a terminal workflow is closed out as
	// cancelled rather than left running forever.
	if run.Status != models.TaskStatusRunning || run.AttemptCount != c.attempt || workflow.Status.IsTerminal() {
		if run.Status == models.TaskStatusRunning && run.AttemptCount == c.attempt {
			run.Status = models.TaskStatusCancelled
		}

		_, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditTaskDiscarded, run.ID, map[string]any{
			"kind":    string(run.Kind),
			"attempt": c.attempt,
		})
		if err != nil {
			return err
		}

		return s.workflows.Save(ctx, workflow)
	}

	if c.err == nil {
		if verr := s.registry.ValidateResult(run.Kind, c.result); verr != nil {
			c.err = protocol.NewExecutionError(protocol.FailureInconsistent, "result schema validation failed", verr)
		}
	}

	if c.err == nil {
		return s.succeed(ctx, workflow, ectx, run, c.result)
	}

	return s.fail(ctx, workflow, state, run, c.err)
}

func (s *Scheduler) succeed(ctx context.Context, workflow *models.Workflow, ectx protocol.ExecutionContext, run *models.TaskRun, result map[string]any) error {
	now := time.Now().UTC()
	run.Status = models.TaskStatusSucceeded
	run.CompletedAt = &now
	run.Result = result
	run.ExceptionReason = ""
	ectx.Results[run.Kind] = result

	_, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditTaskSucceeded, run.ID, map[string]any{
		"kind":     string(run.Kind),
		"progress": workflow.Progress(),
	})
	if err != nil {
		return err
	}

	s.publish(ctx, workflow.ID, events.TaskFinished{
		BaseEvent: s.baseEvent(events.TaskFinishedEvent, workflow.ID),
		TaskRunID: run.ID,
		Kind:      run.Kind,
		Status:    run.Status,
		Duration:  durationSince(run.StartedAt, now),
	})

	if run.Kind == models.TaskKindQuality && s.grow != nil {
		added, growErr := s.grow(ctx, workflow)
		if growErr != nil {
			s.logger.Warn("Graph growth after quality success failed",
				"workflow_id", workflow.ID, "error", growErr)
		}

		for _, leaf := range added {
			_, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditTaskAppended, leaf.ID, map[string]any{
				"kind": string(leaf.Kind),
			})
			if err != nil {
				return err
			}
		}
	}

	return s.workflows.Save(ctx, workflow)
}

func (s *Scheduler) fail(ctx context.Context, workflow *models.Workflow, state *loopState, run *models.TaskRun, execErr error) error {
	run.Status = models.TaskStatusFailed
	run.ExceptionReason = execErr.Error()

	_, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditTaskFailed, run.ID, map[string]any{
		"kind":    string(run.Kind),
		"attempt": run.AttemptCount,
		"error":   execErr.Error(),
	})
	if err != nil {
		return err
	}

	s.publish(ctx, workflow.ID, events.TaskFailed{
		BaseEvent: s.baseEvent(events.TaskFailedEvent, workflow.ID),
		TaskRunID: run.ID,
		Kind:      run.Kind,
		Error:     execErr.Error(),
		Attempt:   run.AttemptCount,
	})

	def, _ := s.registry.Definition(run.Kind)
	decision := s.exceptions.Handle(workflow, run, def.MaxRetries, execErr)

	if decision.Retry {
		state.pendingRetries++

		timerRun := run

		time.AfterFunc(decision.Delay, func() {
			select {
			case state.retries <- timerRun:
			case <-state.done:
			case <-ctx.Done():
			}
		})

		return s.workflows.Save(ctx, workflow)
	}

	_, err = s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditExceptionOpened, run.ID, map[string]any{
		"exception_id": decision.Exception.ID,
		"severity":     string(decision.Severity),
	})
	if err != nil {
		return err
	}

	s.publish(ctx, workflow.ID, events.ExceptionOpened{
		BaseEvent:   s.baseEvent(events.ExceptionOpenedEvent, workflow.ID),
		ExceptionID: decision.Exception.ID,
		TaskRunID:   run.ID,
		Severity:    decision.Severity,
		Reason:      decision.Exception.Reason,
	})

	if decision.Severity == models.SeverityFatal {
		state.fatal = true

		return s.reject(ctx, workflow, decision.Exception.Reason)
	}

	if workflow.Status == models.WorkflowStatusInProgress {
		if err := workflow.Transition(models.WorkflowStatusPendingReview); err != nil {
			return err
		}

		_, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditStatusChanged, "", map[string]any{
			"from": string(models.WorkflowStatusInProgress),
			"to":   string(models.WorkflowStatusPendingReview),
		})
		if err != nil {
			return err
		}
	}

	return s.workflows.Save(ctx, workflow)
}

// reject applies the fatal path: scheduled work is cancelled, in-flight calls
// drain with their results discarded, the workflow lands in rejected.
func (s *Scheduler) reject(ctx context.Context, workflow *models.Workflow, reason string) error {
	cancelled := cancelScheduled(workflow)

	if err := workflow.Transition(models.WorkflowStatusRejected); err != nil {
		return err
	}

	_, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditWorkflowRejected, "", map[string]any{
		"reason":          reason,
		"cancelled_tasks": cancelled,
	})
	if err != nil {
		return err
	}

	s.publish(ctx, workflow.ID, events.WorkflowRejected{
		BaseEvent: s.baseEvent(events.WorkflowRejectedEvent, workflow.ID),
		Reason:    reason,
	})

	return s.workflows.Save(ctx, workflow)
}

func (s *Scheduler) approve(ctx context.Context, workflow *models.Workflow) error {
	if err := workflow.Transition(models.WorkflowStatusApproved); err != nil {
		return err
	}

	_, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditWorkflowApproved, "", map[string]any{
		"progress": workflow.Progress(),
	})
	if err != nil {
		return err
	}

	s.publish(ctx, workflow.ID, events.WorkflowApproved{
		BaseEvent: s.baseEvent(events.WorkflowApprovedEvent, workflow.ID),
		Progress:  workflow.Progress(),
	})

	return s.workflows.Save(ctx, workflow)
}

func (s *Scheduler) requeue(ctx context.Context, workflow *models.Workflow, state *loopState, run *models.TaskRun) error {
	if state.fatal || s.cancelRequested(workflow.ID) || workflow.Status.IsTerminal() {
		if !run.Status.IsTerminal() {
			run.Status = models.TaskStatusCancelled

			_, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditTaskCancelled, run.ID, map[string]any{
				"kind": string(run.Kind),
			})
			if err != nil {
				return err
			}
		}

		return s.workflows.Save(ctx, workflow)
	}

	run.Status = models.TaskStatusReady
	run.ExceptionReason = ""

	_, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditTaskRetried, run.ID, map[string]any{
		"kind":    string(run.Kind),
		"attempt": run.AttemptCount,
	})
	if err != nil {
		return err
	}

	return s.workflows.Save(ctx, workflow)
}

func (s *Scheduler) transition(ctx context.Context, workflow *models.Workflow, to models.WorkflowStatus, action string, details map[string]any) error {
	if err := workflow.Transition(to); err != nil {
		return err
	}

	if _, err := s.trail.Append(ctx, workflow.ID, audit.ActorSystem, action, "", details); err != nil {
		return err
	}

	return s.workflows.Save(ctx, workflow)
}

func (s *Scheduler) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.Warn("Failed to publish lifecycle event",
			"event_type", event.GetType(), "error", err)
	}
}

func (s *Scheduler) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

func readyRuns(workflow *models.Workflow) []*models.TaskRun {
	var ready []*models.TaskRun

	for _, run := range workflow.TaskRuns {
		if run.Status == models.TaskStatusReady {
			ready = append(ready, run)
		}
	}

	slices.SortStableFunc(ready, func(a, b *models.TaskRun) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return a.Kind.Priority() - b.Kind.Priority()
	})

	return ready
}

func allSatisfied(workflow *models.Workflow) bool {
	if len(workflow.TaskRuns) == 0 {
		return false
	}

	for _, run := range workflow.TaskRuns {
		if !run.Status.Satisfies() {
			return false
		}
	}

	return true
}

func cancelScheduled(workflow *models.Workflow) []string {
	var cancelled []string

	for _, run := range workflow.TaskRuns {
		if run.Status == models.TaskStatusPending || run.Status == models.TaskStatusReady {
			run.Status = models.TaskStatusCancelled
			cancelled = append(cancelled, run.ID)
		}
	}

	return cancelled
}

func durationSince(start *time.Time, end time.Time) time.Duration {
	if start == nil {
		return 0
	}

	return end.Sub(*start)
}
