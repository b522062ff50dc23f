package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/persistence"
)

// EvidenceRepository stores one bundle per workflow.
type EvidenceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEvidenceRepository creates a new evidence repository.
func NewEvidenceRepository(db *sql.DB, logger *slog.Logger) *EvidenceRepository {
	return &EvidenceRepository{db: db, logger: logger}
}

func (r *EvidenceRepository) Save(ctx context.Context, bundle *models.EvidenceBundle) error {
	fieldsJSON, err := json.Marshal(bundle.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence fields: %w", err)
	}

	trailJSON, err := json.Marshal(bundle.AuditTrail)
	if err != nil {
		return fmt.Errorf("failed to marshal audit trail: %w", err)
	}

	query := `
		INSERT INTO evidence_bundles (id, workflow_id, clinician_id, fields, audit_trail, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workflow_id) DO UPDATE SET
			id = EXCLUDED.id,
			fields = EXCLUDED.fields,
			audit_trail = EXCLUDED.audit_trail,
			generated_at = EXCLUDED.generated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		bundle.ID,
		bundle.WorkflowID,
		bundle.ClinicianID,
		fieldsJSON,
		trailJSON,
		bundle.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save evidence bundle for workflow %s: %w", bundle.WorkflowID, err)
	}

	return nil
}

func (r *EvidenceRepository) GetByWorkflow(ctx context.Context, workflowID string) (*models.EvidenceBundle, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , clinician_id
		  , fields
		  , audit_trail
		  , generated_at
		FROM evidence_bundles
		WHERE workflow_id = $1
	`

	var (
		bundle     models.EvidenceBundle
		fieldsJSON []byte
		trailJSON  []byte
	)

	err := r.db.QueryRowContext(ctx, query, workflowID).Scan(
		&bundle.ID,
		&bundle.WorkflowID,
		&bundle.ClinicianID,
		&fieldsJSON,
		&trailJSON,
		&bundle.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrBundleNotFound
		}

		return nil, fmt.Errorf("failed to query evidence bundle for workflow %s: %w", workflowID, err)
	}

	if err := json.Unmarshal(fieldsJSON, &bundle.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evidence fields: %w", err)
	}

	if err := json.Unmarshal(trailJSON, &bundle.AuditTrail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal audit trail: %w", err)
	}

	return &bundle, nil
}
