// Package graph builds the concrete task DAG for one workflow instance from a
// destination's requirements checklist and the current gap analysis.
package graph

import (
	"fmt"
	"slices"
	"time"

	"github.com/credentio/credentio/pkg/gap"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/registry"
	"github.com/google/uuid"
)

// FreshnessPolicy maps a task kind to how long one of its verifications stays
// reusable across workflow runs. Kinds without a window always re-run.
type FreshnessPolicy map[models.TaskKind]time.Duration

// DefaultFreshnessPolicy reflects the documented defaults; callers override
// per deployment, the windows are configuration rather than law.
func DefaultFreshnessPolicy() FreshnessPolicy {
	return FreshnessPolicy{
		models.TaskKindVerification:       90 * 24 * time.Hour,
		models.TaskKindQuality:            30 * 24 * time.Hour,
		models.TaskKindDocumentExtraction: 180 * 24 * time.Hour,
	}
}

// Fresh reports whether a prior verification of the kind is still valid at now.
func (p FreshnessPolicy) Fresh(kind models.TaskKind, verifiedAt, now time.Time) bool {
	window, ok := p[kind]
	if !ok {
		return false
	}

	return now.Sub(verifiedAt) < window
}

// kindsByCategory maps each requirement category to the task kind that covers
// it. A checklist category missing from this table fails graph construction.
var kindsByCategory = map[string]models.TaskKind{
	models.CategoryIdentity:      models.TaskKindVerification,
	models.CategoryEducation:     models.TaskKindVerification,
	models.CategoryTraining:      models.TaskKindVerification,
	models.CategoryLicensing:     models.TaskKindVerification,
	models.CategoryCertification: models.TaskKindVerification,
	models.CategoryMalpractice:   models.TaskKindVerification,
	models.CategoryReferences:    models.TaskKindVerification,
	models.CategoryWorkHistory:   models.TaskKindVerification,
	models.CategoryDisclosures:   models.TaskKindGuardrail,
	models.CategoryEnrollment:    models.TaskKindPayerSubmission,
	models.CategoryDocuments:     models.TaskKindDocumentExtraction,
}

// KindForCategory returns the task kind covering a requirement category.
func KindForCategory(category string) (models.TaskKind, bool) {
	kind, ok := kindsByCategory[category]

	return kind, ok
}

// Builder produces task DAGs for workflow instances.
type Builder struct {
	registry  *registry.Registry
	freshness FreshnessPolicy
}

func NewBuilder(reg *registry.Registry, freshness FreshnessPolicy) *Builder {
	if freshness == nil {
		freshness = DefaultFreshnessPolicy()
	}

	return &Builder{registry: reg, freshness: freshness}
}

// Build produces the concrete task set for one workflow. Every graph carries
// exactly one audit task depending on every other kind present, so audit
// always runs last. Kinds whose prior verification is still inside its
// freshness window are not re-scheduled.
func (b *Builder) Build(
	workflowID string,
	checklist *models.RequirementsChecklist,
	findings []gap.Finding,
	prior []models.PriorVerification,
	now time.Time,
) ([]*models.TaskRun, error) {
	required := map[models.TaskKind]bool{
		models.TaskKindRequirements: true,
		models.TaskKindQuality:      true,
	}

	for _, req := range checklist.Requirements {
		kind, ok := kindsByCategory[req.Category]
		if !ok {
			return nil, &ConstructionError{
				WorkflowID: workflowID,
				Reason:     fmt.Sprintf("requirements checklist references unknown category %q", req.Category),
			}
		}

		if req.Required {
			required[kind] = true
		}
	}

	if len(gap.Gaps(findings)) > 0 {
		required[models.TaskKindIntake] = true
	}

	for kind := range required {
		if lastVerified, ok := latestPrior(prior, kind); ok && b.freshness.Fresh(kind, lastVerified, now) {
			delete(required, kind)
		}
	}

	var runs []*models.TaskRun

	for kind := range required {
		def, ok := b.registry.Definition(kind)
		if !ok {
			return nil, &ConstructionError{
				WorkflowID: workflowID,
				Reason:     fmt.Sprintf("task kind %q has no registered implementation", kind),
			}
		}

		runs = append(runs, newTaskRun(workflowID, kind, def.DependsOn, now))
	}

	if _, ok := b.registry.Definition(models.TaskKindAudit); !ok {
		return nil, &ConstructionError{
			WorkflowID: workflowID,
			Reason:     "task kind \"audit\" has no registered implementation",
		}
	}

	auditDeps := make([]models.TaskKind, 0, len(runs))
	for _, run := range runs {
		auditDeps = append(auditDeps, run.Kind)
	}

	runs = append(runs, newTaskRun(workflowID, models.TaskKindAudit, auditDeps, now))

	sortRuns(runs)

	return runs, nil
}

// AppendLeaf grows an already-running workflow's DAG with a new leaf task of
// the given kind. The audit task is re-pointed at the new leaf; no existing
// node is removed or reordered.
func (b *Builder) AppendLeaf(workflow *models.Workflow, kind models.TaskKind, now time.Time) (*models.TaskRun, error) {
	def, ok := b.registry.Definition(kind)
	if !ok {
		return nil, &ConstructionError{
			WorkflowID: workflow.ID,
			Reason:     fmt.Sprintf("task kind %q has no registered implementation", kind),
		}
	}

	run := newTaskRun(workflow.ID, kind, def.DependsOn, now)
	workflow.TaskRuns = append(workflow.TaskRuns, run)

	for _, existing := range workflow.TaskRuns {
		if existing.Kind != models.TaskKindAudit {
			continue
		}

		found := false

		for _, dep := range existing.DependsOn {
			if dep == kind {
				found = true

				break
			}
		}

		if !found {
			existing.DependsOn = append(existing.DependsOn, kind)
		}
	}

	return run, nil
}

func newTaskRun(workflowID string, kind models.TaskKind, dependsOn []models.TaskKind, now time.Time) *models.TaskRun {
	deps := make([]models.TaskKind, len(dependsOn))
	copy(deps, dependsOn)

	return &models.TaskRun{
		ID:         fmt.Sprintf("task-%s-%s", kind, uuid.New().String()[:8]),
		WorkflowID: workflowID,
		Kind:       kind,
		DependsOn:  deps,
		Status:     models.TaskStatusPending,
		CreatedAt:  now,
	}
}

func latestPrior(prior []models.PriorVerification, kind models.TaskKind) (time.Time, bool) {
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

func sortRuns(runs []*models.TaskRun) {
	slices.SortStableFunc(runs, func(a, b *models.TaskRun) int {
		return a.Kind.Priority() - b.Kind.Priority()
	})
}
