package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/credentio/credentio/pkg/audit"
	"github.com/credentio/credentio/pkg/eventbus"
	"github.com/credentio/credentio/pkg/events"
	"github.com/credentio/credentio/pkg/evidence"
	"github.com/credentio/credentio/pkg/exceptions"
	"github.com/credentio/credentio/pkg/gap"
	"github.com/credentio/credentio/pkg/graph"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/persistence"
	"github.com/credentio/credentio/pkg/protocol"
	"github.com/credentio/credentio/pkg/registry"
	"github.com/credentio/credentio/pkg/scheduler"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Orchestrator drives the full credentialing lifecycle. All mutation of an
// active workflow is serialized through its scheduling loop; parked and idle
// workflows are guarded by a per-workflow mutex instead.
type Orchestrator struct {
	persistence persistence.Persistence
	builder     *graph.Builder
	freshness   graph.FreshnessPolicy
	manager     *exceptions.Manager
	trail       *audit.Trail
	evidence    *evidence.Builder
	sched       *scheduler.Scheduler
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
	logger      *slog.Logger

	passports    protocol.PassportSource
	requirements protocol.RequirementsSource

	mu       sync.Mutex
	runtimes map[string]*workflowRuntime
}

// workflowRuntime keeps the in-memory execution inputs for one workflow. The
// passport and checklist live only for the process lifetime; a workflow
// reloaded after a restart can be inspected and resolved but not resumed.
type workflowRuntime struct {
	mu       sync.Mutex
	workflow *models.Workflow
	ectx     protocol.ExecutionContext
	prior    []models.PriorVerification
}

func NewOrchestrator(
	p persistence.Persistence,
	reg *registry.Registry,
	builder *graph.Builder,
	freshness graph.FreshnessPolicy,
	manager *exceptions.Manager,
	trail *audit.Trail,
	evidenceBuilder *evidence.Builder,
	publisher eventbus.EventPublisher,
	schedCfg scheduler.Config,
	logger *slog.Logger,
) *Orchestrator {
	if freshness == nil {
		freshness = graph.DefaultFreshnessPolicy()
	}

	o := &Orchestrator{
		persistence: p,
		builder:     builder,
		freshness:   freshness,
		manager:     manager,
		trail:       trail,
		evidence:    evidenceBuilder,
		publisher:   publisher,
		validator:   validator.New(),
		logger:      logger.With("module", "orchestrator"),
		runtimes:    make(map[string]*workflowRuntime),
	}

	schedCfg.Grow = o.growGraph
	o.sched = scheduler.NewScheduler(reg, manager, trail, p.WorkflowRepository(), publisher, schedCfg, logger)

	return o
}

// WithSources attaches the external passport store and requirements-template
// service. When set, CreateWorkflow requests may omit the inline snapshot and
// checklist and they are fetched here instead.
func (o *Orchestrator) WithSources(passports protocol.PassportSource, requirements protocol.RequirementsSource) *Orchestrator {
	o.passports = passports
	o.requirements = requirements

	return o
}

// HealthCheck checks the health of the persistence layer.
func (o *Orchestrator) HealthCheck(ctx context.Context) (string, bool) {
	if o.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := o.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest is the input for starting one credentialing run.
type CreateWorkflowRequest struct {
	ClinicianID        string                         `json:"clinician_id"     validate:"required"`
	DestinationID      string                         `json:"destination_id"   validate:"required"`
	DestinationType    models.DestinationType         `json:"destination_type" validate:"required"`
	PayerName          string                         `json:"payer_name"`
	Passport           *models.Passport               `json:"passport"`
	Checklist          *models.RequirementsChecklist  `json:"checklist"`
	PriorVerifications []models.PriorVerification     `json:"prior_verifications"`
}

// CreateWorkflow runs gap analysis, builds the task DAG and starts execution.
// Graph construction failure is fatal to creation: nothing is persisted and
// the caller gets the construction error back.
func (o *Orchestrator) CreateWorkflow(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	if err := o.validator.Struct(req); err != nil {
		return nil, NewValidationError("CreateWorkflow", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	if !req.DestinationType.Valid() {
		return nil, NewValidationError("CreateWorkflow", "INVALID_DESTINATION_TYPE",
			fmt.Sprintf("unknown destination type %q", req.DestinationType), ErrInvalidDestinationType)
	}

	if req.Passport == nil {
		if o.passports == nil {
			return nil, NewValidationError("CreateWorkflow", "PASSPORT_REQUIRED",
				"passport snapshot missing and no passport source configured", ErrPassportRequired)
		}

		passport, err := o.passports.GetPassportSnapshot(ctx, req.ClinicianID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch passport snapshot: %w", err)
		}

		req.Passport = passport
	}

	if req.Checklist == nil {
		if o.requirements == nil {
			return nil, NewValidationError("CreateWorkflow", "CHECKLIST_REQUIRED",
				"requirements checklist missing and no requirements source configured", ErrChecklistRequired)
		}

		checklist, err := o.requirements.GetRequirementsChecklist(ctx, req.DestinationID, req.DestinationType)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch requirements checklist: %w", err)
		}

		req.Checklist = checklist
	}

	now := time.Now().UTC()
	workflowID := "wf-" + uuid.NewString()

	findings := gap.Analyze(req.Passport, req.Checklist)

	runs, err := o.builder.Build(workflowID, req.Checklist, findings, req.PriorVerifications, now)
	if err != nil {
		return nil, err
	}

	workflow := &models.Workflow{
		ID:              workflowID,
		ClinicianID:     req.ClinicianID,
		DestinationID:   req.DestinationID,
		DestinationType: req.DestinationType,
		Status:          models.WorkflowStatusDraft,
		TaskRuns:        runs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = o.trail.Append(ctx, workflowID, audit.ActorSystem, models.AuditWorkflowCreated, "", map[string]any{
		"clinician_id":     req.ClinicianID,
		"destination_id":   req.DestinationID,
		"destination_type": string(req.DestinationType),
		"task_count":       len(runs),
		"gaps":             gap.Gaps(findings),
	})
	if err != nil {
		return nil, err
	}

	if err := o.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	o.publish(ctx, workflowID, events.WorkflowCreated{
		BaseEvent:       o.baseEvent(events.WorkflowCreatedEvent, workflowID),
		ClinicianID:     req.ClinicianID,
		DestinationID:   req.DestinationID,
		DestinationType: req.DestinationType,
		TaskCount:       len(runs),
	})

	rt := &workflowRuntime{
		workflow: workflow,
		ectx: protocol.ExecutionContext{
			WorkflowID: workflowID,
			Passport:   req.Passport,
			Checklist:  req.Checklist,
			PayerName:  req.PayerName,
			Results:    make(map[models.TaskKind]map[string]any),
			Logger:     o.logger,
		},
		prior: req.PriorVerifications,
	}
	o.storeRuntime(rt)

	// Reserving the loop handle before the goroutine starts means every
	// operation on this workflow serializes through Execute from here on;
	// nothing races the loop's own startup mutations.
	o.sched.Reserve(workflowID)

	go o.runWorkflow(rt)

	o.logger.Info("Created workflow",
		"workflow_id", workflowID,
		"clinician_id", req.ClinicianID,
		"destination_id", req.DestinationID,
		"tasks", len(runs))

	return copyWorkflow(workflow), nil
}

// TaskState is one task run in the status projection.
type TaskState struct {
	ID           string            `json:"id"`
	Kind         models.TaskKind   `json:"kind"`
	Status       models.TaskStatus `json:"status"`
	AttemptCount int               `json:"attempt_count"`
}

// WorkflowStatusResponse is the pollable projection of one workflow.
type WorkflowStatusResponse struct {
	WorkflowID     string                    `json:"workflow_id"`
	Status         models.WorkflowStatus     `json:"status"`
	Progress       float64                   `json:"progress"`
	Tasks          []TaskState               `json:"tasks"`
	OpenExceptions []*models.ExceptionRecord `json:"open_exceptions"`
}

// GetWorkflowStatus returns the current status projection.
func (o *Orchestrator) GetWorkflowStatus(ctx context.Context, workflowID string) (*WorkflowStatusResponse, error) {
	rt, err := o.runtimeFor(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	var resp *WorkflowStatusResponse

	project := func() error {
		resp = statusProjection(rt.workflow)

		return nil
	}

	ran, err := o.sched.Execute(workflowID, project)
	if !ran {
		rt.mu.Lock()
		err = project()
		rt.mu.Unlock()
	}

	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetWorkflow returns a snapshot of the full workflow aggregate.
func (o *Orchestrator) GetWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	rt, err := o.runtimeFor(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	var snapshot *models.Workflow

	copyOut := func() error {
		snapshot = copyWorkflow(rt.workflow)

		return nil
	}

	ran, err := o.sched.Execute(workflowID, copyOut)
	if !ran {
		rt.mu.Lock()
		err = copyOut()
		rt.mu.Unlock()
	}

	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// ListWorkflows retrieves workflows with filtering and pagination.
func (o *Orchestrator) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	if opts.Limit > 100 {
		opts.Limit = 100
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	workflows, err := o.persistence.WorkflowRepository().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// ResolveExceptionRequest is a reviewer's verdict on one open exception.
type ResolveExceptionRequest struct {
	WorkflowID  string                     `json:"workflow_id"  validate:"required"`
	ExceptionID string                     `json:"exception_id" validate:"required"`
	Resolution  models.ExceptionResolution `json:"resolution"   validate:"required"`
	Note        string                     `json:"note"`
	Actor       string                     `json:"actor"`
}

// ResolveException applies a reviewer action to an open exception. Resolution
// "retried" re-queues the failed task run and resumes execution;
// "overridden" skips it; "workflow_cancelled" closes the record and cancels
// the workflow.
func (o *Orchestrator) ResolveException(ctx context.Context, req ResolveExceptionRequest) (*models.ExceptionRecord, error) {
	if err := o.validator.Struct(req); err != nil {
		return nil, NewValidationError("ResolveException", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	actor := req.Actor
	if actor == "" {
		actor = "reviewer"
	}

	rt, err := o.runtimeFor(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}

	var resolved *models.ExceptionRecord

	apply := func() error {
		workflow := rt.workflow

		if workflow.Status.IsTerminal() {
			return ErrWorkflowTerminal
		}

		record, err := o.manager.Resolve(workflow, req.ExceptionID, req.Resolution, req.Note)
		if err != nil {
			return err
		}

		resolved = record

		_, err = o.trail.Append(ctx, workflow.ID, actor, models.AuditExceptionResolved, record.ID, map[string]any{
			"task_run_id": record.TaskRunID,
			"resolution":  string(req.Resolution),
			"note":        req.Note,
		})
		if err != nil {
			return err
		}

		if workflow.Status == models.WorkflowStatusPendingReview && len(workflow.OpenExceptions()) == 0 {
			if err := workflow.Transition(models.WorkflowStatusInProgress); err != nil {
				return err
			}

			_, err := o.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditStatusChanged, "", map[string]any{
				"from": string(models.WorkflowStatusPendingReview),
				"to":   string(models.WorkflowStatusInProgress),
			})
			if err != nil {
				return err
			}
		}

		if err := o.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
			return err
		}

		o.publish(ctx, workflow.ID, events.ExceptionResolved{
			BaseEvent:   o.baseEvent(events.ExceptionResolvedEvent, workflow.ID),
			ExceptionID: record.ID,
			Resolution:  req.Resolution,
		})

		return nil
	}

	ran, err := o.sched.Execute(req.WorkflowID, apply)
	if !ran {
		rt.mu.Lock()
		err = apply()
		rt.mu.Unlock()
	}

	if err != nil {
		return nil, err
	}

	if req.Resolution == models.ResolutionWorkflowCancelled {
		if err := o.cancel(ctx, rt); err != nil {
			return nil, err
		}

		return resolved, nil
	}

	// A parked workflow with its runtime still in memory resumes execution.
	if !ran && rt.ectx.Passport != nil && !o.sched.Active(req.WorkflowID) {
		rt.mu.Lock()
		resumable := !rt.workflow.Status.IsTerminal()
		rt.mu.Unlock()

		if resumable {
			o.sched.Reserve(req.WorkflowID)

			go o.runWorkflow(rt)
		}
	}

	return resolved, nil
}

// CancelWorkflow cancels a non-terminal workflow. In-flight agent calls drain
// with their results discarded; nothing new dispatches.
func (o *Orchestrator) CancelWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	rt, err := o.runtimeFor(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if err := o.cancel(ctx, rt); err != nil {
		return nil, err
	}

	return o.GetWorkflow(ctx, workflowID)
}

func (o *Orchestrator) cancel(ctx context.Context, rt *workflowRuntime) error {
	workflowID := rt.workflow.ID

	apply := func() error {
		if rt.workflow.Status.IsTerminal() {
			return ErrWorkflowTerminal
		}

		o.sched.RequestCancel(workflowID)

		return o.sched.ApplyCancel(ctx, rt.workflow)
	}

	ran, err := o.sched.Execute(workflowID, apply)
	if ran {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.workflow.Status.IsTerminal() {
		return ErrWorkflowTerminal
	}

	// A loop starting between the Execute check and here must see the
	// cancellation request rather than run against a rejected workflow.
	o.sched.RequestCancel(workflowID)

	return o.sched.ApplyCancel(ctx, rt.workflow)
}

// GetEvidenceBundle returns the bundle for a completed workflow. An approved
// workflow whose earlier assembly failed gets one more attempt here.
func (o *Orchestrator) GetEvidenceBundle(ctx context.Context, workflowID string) (*models.EvidenceBundle, error) {
	rt, err := o.runtimeFor(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	var status models.WorkflowStatus

	read := func() error {
		status = rt.workflow.Status

		return nil
	}

	ran, err := o.sched.Execute(workflowID, read)
	if !ran {
		rt.mu.Lock()
		err = read()
		rt.mu.Unlock()
	}

	if err != nil {
		return nil, err
	}

	switch status {
	case models.WorkflowStatusCompleted:
		return o.persistence.EvidenceRepository().GetByWorkflow(ctx, workflowID)
	case models.WorkflowStatusApproved:
		// The loop has exited once the workflow is approved; the runtime
		// mutex alone guards the retry against the approval follow-through.
		rt.mu.Lock()
		defer rt.mu.Unlock()

		if rt.workflow.Status == models.WorkflowStatusApproved {
			if err := o.completeWorkflow(ctx, rt.workflow); err != nil {
				return nil, err
			}
		}

		return o.persistence.EvidenceRepository().GetByWorkflow(ctx, workflowID)
	default:
		return nil, ErrBundleNotReady
	}
}

// runWorkflow owns one scheduling pass and the approval follow-through.
func (o *Orchestrator) runWorkflow(rt *workflowRuntime) {
	ctx := context.Background()

	outcome, err := o.sched.Run(ctx, rt.workflow, rt.ectx)
	if err != nil {
		o.logger.Error("Workflow execution aborted",
			"workflow_id", rt.workflow.ID, "error", err)

		return
	}

	o.logger.Info("Workflow execution pass finished",
		"workflow_id", rt.workflow.ID, "outcome", outcome)

	if outcome != scheduler.OutcomeApproved {
		return
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := o.completeWorkflow(ctx, rt.workflow); err != nil {
		o.logger.Warn("Evidence bundle assembly failed; workflow stays approved",
			"workflow_id", rt.workflow.ID, "error", err)
	}
}

// completeWorkflow assembles the evidence bundle and moves approved to
// completed. Assembly failure leaves the workflow approved for a later retry.
func (o *Orchestrator) completeWorkflow(ctx context.Context, workflow *models.Workflow) error {
	bundle, err := o.evidence.Build(ctx, workflow)
	if err != nil {
		if _, auditErr := o.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditEvidenceFailed, "", map[string]any{
			"error": err.Error(),
		}); auditErr != nil {
			return auditErr
		}

		return err
	}

	workflow.EvidenceBundleID = bundle.ID

	_, err = o.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditEvidenceBuilt, bundle.ID, map[string]any{
		"fields": len(bundle.Fields),
	})
	if err != nil {
		return err
	}

	if err := workflow.Transition(models.WorkflowStatusCompleted); err != nil {
		return err
	}

	_, err = o.trail.Append(ctx, workflow.ID, audit.ActorSystem, models.AuditWorkflowCompleted, bundle.ID, nil)
	if err != nil {
		return err
	}

	if err := o.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return err
	}

	o.publish(ctx, workflow.ID, events.EvidenceBundleBuilt{
		BaseEvent:  o.baseEvent(events.EvidenceBundleBuiltEvent, workflow.ID),
		BundleID:   bundle.ID,
		FieldCount: len(bundle.Fields),
	})
	o.publish(ctx, workflow.ID, events.WorkflowCompleted{
		BaseEvent:        o.baseEvent(events.WorkflowCompletedEvent, workflow.ID),
		EvidenceBundleID: bundle.ID,
	})

	return nil
}

// growGraph re-runs gap analysis after a quality task succeeds and appends a
// leaf for every required category that the passport now covers but no task
// run or still-fresh prior verification accounts for. Called from inside the
// scheduling loop.
func (o *Orchestrator) growGraph(ctx context.Context, workflow *models.Workflow) ([]*models.TaskRun, error) {
	o.mu.Lock()
	rt := o.runtimes[workflow.ID]
	o.mu.Unlock()

	if rt == nil || rt.ectx.Passport == nil || rt.ectx.Checklist == nil {
		return nil, nil
	}

	findings := gap.Analyze(rt.ectx.Passport, rt.ectx.Checklist)
	now := time.Now().UTC()

	var added []*models.TaskRun

	for _, finding := range findings {
		if finding.Status != gap.StatusSatisfied {
			continue
		}

		kind, ok := graph.KindForCategory(finding.Category)
		if !ok {
			continue
		}

		if len(workflow.TasksByKind(kind)) > 0 {
			continue
		}

		if verifiedAt, ok := latestPriorFor(rt.prior, kind); ok && o.freshness.Fresh(kind, verifiedAt, now) {
			continue
		}

		leaf, err := o.builder.AppendLeaf(workflow, kind, now)
		if err != nil {
			return added, err
		}

		added = append(added, leaf)
	}

	return added, nil
}

func (o *Orchestrator) runtimeFor(ctx context.Context, workflowID string) (*workflowRuntime, error) {
	o.mu.Lock()
	rt, ok := o.runtimes[workflowID]
	o.mu.Unlock()

	if ok {
		return rt, nil
	}

	workflow, err := o.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	rt = &workflowRuntime{workflow: workflow}

	return o.storeRuntime(rt), nil
}

// storeRuntime registers the runtime, keeping an already-registered one.
func (o *Orchestrator) storeRuntime(rt *workflowRuntime) *workflowRuntime {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.runtimes[rt.workflow.ID]; ok {
		return existing
	}

	o.runtimes[rt.workflow.ID] = rt

	return rt
}

func (o *Orchestrator) publish(ctx context.Context, key string, event eventbus.Event) {
	if o.publisher == nil {
		return
	}

	if err := o.publisher.Publish(ctx, key, event); err != nil {
		o.logger.Warn("Failed to publish lifecycle event",
			"event_type", event.GetType(), "error", err)
	}
}

func (o *Orchestrator) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

func statusProjection(workflow *models.Workflow) *WorkflowStatusResponse {
	tasks := make([]TaskState, 0, len(workflow.TaskRuns))
	for _, run := range workflow.TaskRuns {
		tasks = append(tasks, TaskState{
			ID:           run.ID,
			Kind:         run.Kind,
			Status:       run.Status,
			AttemptCount: run.AttemptCount,
		})
	}

	open := workflow.OpenExceptions()
	openCopy := make([]*models.ExceptionRecord, 0, len(open))

	for _, ex := range open {
		record := *ex
		openCopy = append(openCopy, &record)
	}

	return &WorkflowStatusResponse{
		WorkflowID:     workflow.ID,
		Status:         workflow.Status,
		Progress:       workflow.Progress(),
		Tasks:          tasks,
		OpenExceptions: openCopy,
	}
}

// copyWorkflow deep-copies the aggregate so callers can marshal it without
// racing the scheduling loop.
func copyWorkflow(workflow *models.Workflow) *models.Workflow {
	clone := *workflow

	clone.TaskRuns = make([]*models.TaskRun, 0, len(workflow.TaskRuns))
	for _, run := range workflow.TaskRuns {
		r := *run
		r.DependsOn = append([]models.TaskKind(nil), run.DependsOn...)
		clone.TaskRuns = append(clone.TaskRuns, &r)
	}

	clone.Exceptions = make([]*models.ExceptionRecord, 0, len(workflow.Exceptions))
	for _, ex := range workflow.Exceptions {
		e := *ex
		clone.Exceptions = append(clone.Exceptions, &e)
	}

	return &clone
}

func latestPriorFor(prior []models.PriorVerification, kind models.TaskKind) (time.Time, bool) {
	var latest time.Time

	found := false

	for _, p := range prior {
		if p.Kind == kind && p.VerifiedAt.After(latest) {
			latest = p.VerifiedAt
			found = true
		}
	}

	return latest, found
}
