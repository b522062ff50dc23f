// Package evidence assembles the provenance-linked bundle proving which
// verification backed each passport field.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/credentio/credentio/pkg/audit"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/persistence"
	"github.com/google/uuid"
)

// ResultFieldsKey is the agent result key listing the passport fields a
// succeeded task verified.
const ResultFieldsKey = "verified_fields"

// ResultSourceKey is the agent result key naming the primary source consulted.
const ResultSourceKey = "source"

type Builder struct {
	trail  *audit.Trail
	repo   persistence.EvidenceRepository
	logger *slog.Logger
}

func NewBuilder(trail *audit.Trail, repo persistence.EvidenceRepository, logger *slog.Logger) *Builder {
	return &Builder{
		trail:  trail,
		repo:   repo,
		logger: logger.With("module", "evidence_builder"),
	}
}

// Build deterministically assembles and persists the bundle for an approved
// workflow: for each passport field referenced by at least one succeeded
// task, the most recent successful task run is linked, and the full ordered
// audit sequence is embedded. A missing or corrupted result is an
// AssemblyError; the workflow stays approved and the build is retried later.
func (b *Builder) Build(ctx context.Context, workflow *models.Workflow) (*models.EvidenceBundle, error) {
	latest := make(map[string]models.FieldEvidence)

	for _, run := range workflow.TaskRuns {
		if run.Status != models.TaskStatusSucceeded {
			continue
		}

		if run.Result == nil {
			return nil, &AssemblyError{
				WorkflowID: workflow.ID,
				TaskRunID:  run.ID,
				Reason:     "succeeded task run has no result payload",
			}
		}

		fields, err := resultFields(run.Result)
		if err != nil {
			return nil, &AssemblyError{
				WorkflowID: workflow.ID,
				TaskRunID:  run.ID,
				Reason:     err.Error(),
			}
		}

		if len(fields) == 0 {
			continue
		}

		if run.CompletedAt == nil {
			return nil, &AssemblyError{
				WorkflowID: workflow.ID,
				TaskRunID:  run.ID,
				Reason:     "succeeded task run has no completion timestamp",
			}
		}

		source, _ := run.Result[ResultSourceKey].(string)

		for _, field := range fields {
			current, ok := latest[field]
			if ok && !run.CompletedAt.After(current.VerifiedAt) {
				continue
			}

			latest[field] = models.FieldEvidence{
				Field:      field,
				TaskRunID:  run.ID,
				Kind:       run.Kind,
				VerifiedAt: *run.CompletedAt,
				Source:     source,
			}
		}
	}

	events, err := b.trail.Events(ctx, workflow.ID)
	if err != nil {
		return nil, &AssemblyError{
			WorkflowID: workflow.ID,
			Reason:     fmt.Sprintf("failed to load audit trail: %v", err),
		}
	}

	bundle := &models.EvidenceBundle{
		ID:          fmt.Sprintf("bundle-%s", uuid.NewString()),
		WorkflowID:  workflow.ID,
		ClinicianID: workflow.ClinicianID,
		Fields:      orderedFields(workflow, latest),
		AuditTrail:  events,
		GeneratedAt: time.Now().UTC(),
	}

	if err := b.repo.Save(ctx, bundle); err != nil {
		return nil, &AssemblyError{
			WorkflowID: workflow.ID,
			Reason:     fmt.Sprintf("failed to persist bundle: %v", err),
		}
	}

	b.logger.Info("Assembled evidence bundle",
		"workflow_id", workflow.ID,
		"bundle_id", bundle.ID,
		"fields", len(bundle.Fields),
		"audit_events", len(events))

	return bundle, nil
}

// orderedFields emits field evidence in task-run creation order, then field
// name, so bundle assembly is deterministic.
func orderedFields(workflow *models.Workflow, latest map[string]models.FieldEvidence) []models.FieldEvidence {
	fields := make([]models.FieldEvidence, 0, len(latest))

	for _, run := range workflow.TaskRuns {
		var runFields []string

		for field, fe := range latest {
			if fe.TaskRunID == run.ID {
				runFields = append(runFields, field)
			}
		}

		slices.Sort(runFields)

		for _, field := range runFields {
			fields = append(fields, latest[field])
		}
	}

	return fields
}

func resultFields(result map[string]any) ([]string, error) {
	raw, ok := result[ResultFieldsKey]
	if !ok {
		return nil, nil
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		fields := make([]string, 0, len(v))

		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("corrupted %s entry %v", ResultFieldsKey, item)
			}

			fields = append(fields, s)
		}

		return fields, nil
	default:
		return nil, fmt.Errorf("corrupted %s payload", ResultFieldsKey)
	}
}
