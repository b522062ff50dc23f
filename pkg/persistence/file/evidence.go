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

// EvidenceRepository stores one bundle per workflow under
// <root>/evidence/<workflow_id>.json. Bundles are write-once.
type EvidenceRepository struct {
	root string
	mu   sync.Mutex
}

func NewEvidenceRepository(root string) *EvidenceRepository {
	return &EvidenceRepository{root: root}
}

func (er *EvidenceRepository) path(workflowID string) string {
	return filepath.Join(er.root, "evidence", workflowID+".json")
}

func (er *EvidenceRepository) Save(_ context.Context, bundle *models.EvidenceBundle) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(er.root, "evidence"), dirPerm); err != nil {
		return fmt.Errorf("failed to create evidence directory: %w", err)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal evidence bundle: %w", err)
	}

	if err := os.WriteFile(er.path(bundle.WorkflowID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write evidence bundle: %w", err)
	}

	return nil
}

func (er *EvidenceRepository) GetByWorkflow(_ context.Context, workflowID string) (*models.EvidenceBundle, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	data, err := os.ReadFile(er.path(workflowID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.ErrBundleNotFound
		}

		return nil, fmt.Errorf("failed to read evidence bundle for workflow %s: %w", workflowID, err)
	}

	var bundle models.EvidenceBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evidence bundle for workflow %s: %w", workflowID, err)
	}

	return &bundle, nil
}
