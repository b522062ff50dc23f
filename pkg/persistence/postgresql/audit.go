package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/persistence"
)

const uniqueViolationCode = "23505"

// AuditRepository handles the append-only audit trail. There is no update or
// delete path; sequence integrity is enforced by a unique index.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

func (r *AuditRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event details: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, workflow_id, seq, actor, action, payload_ref, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.WorkflowID,
		event.Seq,
		event.Actor,
		event.Action,
		nullString(event.PayloadRef),
		detailsJSON,
		event.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			return persistence.ErrDuplicateAuditSeq
		}

		return fmt.Errorf("failed to append audit event for workflow %s: %w", event.WorkflowID, err)
	}

	return nil
}

func (r *AuditRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.AuditEvent, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , seq
		  , actor
		  , action
		  , payload_ref
		  , details
		  , created_at
		FROM audit_events
		WHERE workflow_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events for workflow %s: %w", workflowID, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	events := make([]*models.AuditEvent, 0)

	for rows.Next() {
		var (
			event       models.AuditEvent
			payloadRef  sql.NullString
			detailsJSON []byte
		)

		err := rows.Scan(
			&event.ID,
			&event.WorkflowID,
			&event.Seq,
			&event.Actor,
			&event.Action,
			&payloadRef,
			&detailsJSON,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		event.PayloadRef = payloadRef.String

		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &event.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit event details: %w", err)
			}
		}

		events = append(events, &event)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}
