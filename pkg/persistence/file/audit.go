package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/persistence"
)

// AuditRepository stores the event sequence of each workflow as one JSON array
// under <root>/audit/<workflow_id>.json. Events are only ever appended.
type AuditRepository struct {
	root string
	mu   sync.Mutex
}

func NewAuditRepository(root string) *AuditRepository {
	return &AuditRepository{root: root}
}

func (ar *AuditRepository) path(workflowID string) string {
	return filepath.Join(ar.root, "audit", workflowID+".json")
}

func (ar *AuditRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	events, err := ar.load(event.WorkflowID)
	if err != nil {
		return err
	}

	for _, existing := range events {
		if existing.Seq == event.Seq {
			return fmt.Errorf("append audit event for workflow %s: %w", event.WorkflowID, persistence.ErrDuplicateAuditSeq)
		}
	}

	events = append(events, event)

	if err := os.MkdirAll(filepath.Join(ar.root, "audit"), dirPerm); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit events: %w", err)
	}

	if err := os.WriteFile(ar.path(event.WorkflowID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write audit events: %w", err)
	}

	return nil
}

func (ar *AuditRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.AuditEvent, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	return ar.load(workflowID)
}

func (ar *AuditRepository) load(workflowID string) ([]*models.AuditEvent, error) {
	data, err := os.ReadFile(ar.path(workflowID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.AuditEvent{}, nil
		}

		return nil, fmt.Errorf("failed to read audit events for workflow %s: %w", workflowID, err)
	}

	var events []*models.AuditEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal audit events for workflow %s: %w", workflowID, err)
	}

	return events, nil
}
