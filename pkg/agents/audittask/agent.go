// Package audittask implements the audit agent that runs last in every
// workflow: it re-reads the workflow's audit trail and verifies the sequence
// is contiguous before the workflow can be approved.
package audittask

import (
	"context"
	"fmt"

	"github.com/credentio/credentio/pkg/audit"
	"github.com/credentio/credentio/pkg/evidence"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
)

// Source names the data source consulted by this agent.
const Source = "audit_trail"

// Agent verifies audit trail integrity for one workflow.
type Agent struct {
	trail *audit.Trail
}

func NewAgent(trail *audit.Trail) *Agent {
	return &Agent{trail: trail}
}

func (a *Agent) Execute(ctx context.Context, run models.TaskRun, ectx protocol.ExecutionContext) (map[string]any, error) {
	logger := ectx.Logger.With("module", "audit_agent")

	events, err := a.trail.Events(ctx, run.WorkflowID)
	if err != nil {
		return nil, protocol.NewExecutionError(protocol.FailureTransient,
			"failed to load audit trail", err)
	}

	for i, event := range events {
		if event.Seq != int64(i+1) {
			return nil, protocol.NewExecutionError(protocol.FailureInconsistent,
				fmt.Sprintf("audit sequence broken at position %d: expected seq %d, got %d", i, i+1, event.Seq), nil)
		}
	}

	logger.InfoContext(ctx, "Audit trail verified",
		"workflow_id", run.WorkflowID,
		"events", len(events))

	return map[string]any{
		"status":                "ok",
		"events_checked":        len(events),
		evidence.ResultSourceKey: Source,
	}, nil
}
