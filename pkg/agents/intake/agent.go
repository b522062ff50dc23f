// Package intake implements the agent that opens data requests for checklist
// categories the passport does not yet cover. Issuing a request is the unit of
// work here; the data itself arrives out of band.
package intake

import (
	"context"
	"fmt"

	"github.com/credentio/credentio/pkg/evidence"
	"github.com/credentio/credentio/pkg/gap"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
	"github.com/google/uuid"
)

// Source names the data source consulted by this agent.
const Source = "intake_portal"

// Agent issues one intake request per unsatisfied requirement category.
type Agent struct{}

func NewAgent() *Agent {
	return &Agent{}
}

func (a *Agent) Execute(ctx context.Context, run models.TaskRun, ectx protocol.ExecutionContext) (map[string]any, error) {
	logger := ectx.Logger.With("module", "intake_agent")

	if ectx.Passport == nil || ectx.Checklist == nil {
		return nil, protocol.NewExecutionError(protocol.FailureInconsistent,
			"passport and checklist are required to open intake requests", nil)
	}

	findings := gap.Analyze(ectx.Passport, ectx.Checklist)
	gaps := gap.Gaps(findings)

	requests := make([]map[string]any, 0, len(gaps))
	for _, category := range gaps {
		requests = append(requests, map[string]any{
			"request_id": fmt.Sprintf("req-%s", uuid.New().String()[:8]),
			"category":   category,
		})
	}

	logger.InfoContext(ctx, "Opened intake requests",
		"workflow_id", run.WorkflowID,
		"requests", len(requests))

	return map[string]any{
		"status":                "ok",
		"requested":             requests,
		evidence.ResultSourceKey: Source,
	}, nil
}
