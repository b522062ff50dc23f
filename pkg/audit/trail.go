// Package audit maintains the append-only event trail that is the source of
// truth for what happened to a workflow and when.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/persistence"
	"github.com/google/uuid"
)

// ActorSystem is the actor recorded for orchestrator-initiated events.
const ActorSystem = "system:orchestrator"

// Trail appends audit events with a strictly increasing per-workflow sequence.
// Appends are serialized; triggering tasks may complete out of order but the
// trail order is authoritative.
type Trail struct {
	repo   persistence.AuditRepository
	logger *slog.Logger

	mu   sync.Mutex
	seqs map[string]int64
}

func NewTrail(repo persistence.AuditRepository, logger *slog.Logger) *Trail {
	return &Trail{
		repo:   repo,
		logger: logger.With("module", "audit_trail"),
		seqs:   make(map[string]int64),
	}
}

// Append records one state change. It must be called before the triggering
// operation returns to its caller; an append failure aborts that operation.
func (t *Trail) Append(ctx context.Context, workflowID, actor, action, payloadRef string, details map[string]any) (*models.AuditEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq, ok := t.seqs[workflowID]
	if !ok {
		existing, err := t.repo.ListByWorkflow(ctx, workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to recover audit sequence for workflow %s: %w", workflowID, err)
		}

		for _, event := range existing {
			if event.Seq > seq {
				seq = event.Seq
			}
		}
	}

	event := &models.AuditEvent{
		ID:         fmt.Sprintf("evt-%s", uuid.NewString()),
		WorkflowID: workflowID,
		Seq:        seq + 1,
		Actor:      actor,
		Action:     action,
		PayloadRef: payloadRef,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}

	if err := t.repo.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append audit event for workflow %s: %w", workflowID, err)
	}

	t.seqs[workflowID] = event.Seq

	t.logger.Debug("Appended audit event",
		"workflow_id", workflowID,
		"seq", event.Seq,
		"action", action,
		"actor", actor)

	return event, nil
}

// Events returns the full ordered audit sequence for a workflow.
func (t *Trail) Events(ctx context.Context, workflowID string) ([]*models.AuditEvent, error) {
	events, err := t.repo.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(events, func(a, b *models.AuditEvent) int {
		return int(a.Seq - b.Seq)
	})

	return events, nil
}
