// Package persistence provides the storage abstraction the orchestrator needs
// to resume and audit workflows.
package persistence

import (
	"context"

	"github.com/credentio/credentio/pkg/models"
)

// ListWorkflowsOptions filters and pages workflow listings.
type ListWorkflowsOptions struct {
	ClinicianID string
	Status      *models.WorkflowStatus
	Limit       int
	Offset      int
}

type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context, opts ListWorkflowsOptions) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// AuditRepository is append-only: events are never mutated or deleted.
type AuditRepository interface {
	Append(ctx context.Context, event *models.AuditEvent) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.AuditEvent, error)
}

type EvidenceRepository interface {
	Save(ctx context.Context, bundle *models.EvidenceBundle) error
	GetByWorkflow(ctx context.Context, workflowID string) (*models.EvidenceBundle, error)
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	AuditRepository() AuditRepository
	EvidenceRepository() EvidenceRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
