// Package file provides file-based persistence for workflows, audit events,
// and evidence bundles. It backs unit tests and local development.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/credentio/credentio/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the file system.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	auditRepo    *AuditRepository
	evidenceRepo *EvidenceRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
		auditRepo:    NewAuditRepository(cleanRoot),
		evidenceRepo: NewEvidenceRepository(cleanRoot),
	}
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) AuditRepository() persistence.AuditRepository {
	return fp.auditRepo
}

func (fp *Persistence) EvidenceRepository() persistence.EvidenceRepository {
	return fp.evidenceRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
