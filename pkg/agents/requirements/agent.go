// Package requirements implements the checklist agent: it rescores every
// requirement on the destination checklist against the current passport so the
// workflow starts from an honest picture of what is already complete.
package requirements

import (
	"context"

	"github.com/credentio/credentio/pkg/evidence"
	"github.com/credentio/credentio/pkg/gap"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
)

// Source names the data source consulted by this agent.
const Source = "passport"

// Agent evaluates requirement completion from passport coverage.
type Agent struct{}

func NewAgent() *Agent {
	return &Agent{}
}

// Execute rescans the checklist and reports per-requirement status plus the
// complete/pending totals.
func (a *Agent) Execute(ctx context.Context, run models.TaskRun, ectx protocol.ExecutionContext) (map[string]any, error) {
	logger := ectx.Logger.With("module", "requirements_agent")

	if ectx.Passport == nil || ectx.Checklist == nil {
		return nil, protocol.NewExecutionError(protocol.FailureInconsistent,
			"passport and checklist are required to evaluate requirements", nil)
	}

	evaluated := make([]map[string]any, 0, len(ectx.Checklist.Requirements))

	var complete, pending int

	for _, req := range ectx.Checklist.Requirements {
		status := models.RequirementPending
		if gap.CategorySatisfied(ectx.Passport, req.Category) {
			status = models.RequirementComplete
			complete++
		} else {
			pending++
		}

		evaluated = append(evaluated, map[string]any{
			"id":       req.ID,
			"category": req.Category,
			"required": req.Required,
			"status":   string(status),
		})
	}

	logger.InfoContext(ctx, "Evaluated requirements checklist",
		"workflow_id", run.WorkflowID,
		"complete", complete,
		"pending", pending)

	return map[string]any{
		"status":                "ok",
		"requirements":          evaluated,
		"complete":              complete,
		"pending":               pending,
		evidence.ResultSourceKey: Source,
	}, nil
}
