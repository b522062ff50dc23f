package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations. The
// workflow is saved as an aggregate: task runs and exceptions travel with it.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	workflow.UpdatedAt = time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = workflow.UpdatedAt
	}

	taskRunsJSON, err := json.Marshal(workflow.TaskRuns)
	if err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, fmt.Errorf("failed to marshal task runs: %w", err))
	}

	exceptionsJSON, err := json.Marshal(workflow.Exceptions)
	if err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, fmt.Errorf("failed to marshal exceptions: %w", err))
	}

	query := `
		INSERT INTO workflows (
			id, clinician_id, destination_id, destination_type, status,
			task_runs, exceptions, evidence_bundle_id, cancelled_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			task_runs = EXCLUDED.task_runs,
			exceptions = EXCLUDED.exceptions,
			evidence_bundle_id = EXCLUDED.evidence_bundle_id,
			cancelled_at = EXCLUDED.cancelled_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.ClinicianID,
		workflow.DestinationID,
		string(workflow.DestinationType),
		string(workflow.Status),
		taskRunsJSON,
		exceptionsJSON,
		nullString(workflow.EvidenceBundleID),
		workflow.CancelledAt,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := selectWorkflowQuery + " WHERE id = $1 AND deleted_at IS NULL"

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("get", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("get", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	query := selectWorkflowQuery + " WHERE deleted_at IS NULL"
	args := []any{}

	if opts.ClinicianID != "" {
		args = append(args, opts.ClinicianID)
		query += fmt.Sprintf(" AND clinician_id = $%d", len(args))
	}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// Delete soft deletes a workflow by setting the deleted_at timestamp.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE workflows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return persistence.NewWorkflowError("delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

const selectWorkflowQuery = `
	SELECT
		id
	  , clinician_id
	  , destination_id
	  , destination_type
	  , status
	  , task_runs
	  , exceptions
	  , evidence_bundle_id
	  , cancelled_at
	  , created_at
	  , updated_at
	FROM workflows
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow         models.Workflow
		destinationType  string
		status           string
		taskRunsJSON     []byte
		exceptionsJSON   []byte
		evidenceBundleID sql.NullString
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.ClinicianID,
		&workflow.DestinationID,
		&destinationType,
		&status,
		&taskRunsJSON,
		&exceptionsJSON,
		&evidenceBundleID,
		&workflow.CancelledAt,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.DestinationType = models.DestinationType(destinationType)
	workflow.Status = models.WorkflowStatus(status)
	workflow.EvidenceBundleID = evidenceBundleID.String

	if err := json.Unmarshal(taskRunsJSON, &workflow.TaskRuns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task runs: %w", err)
	}

	if err := json.Unmarshal(exceptionsJSON, &workflow.Exceptions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exceptions: %w", err)
	}

	return &workflow, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
