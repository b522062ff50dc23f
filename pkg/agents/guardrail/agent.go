// Package guardrail implements the billing and scheduling guardrail agent. An
// unresolved sanction or disciplinary disclosure is a compliance violation and
// kills the workflow; everything else reports as a passed check.
package guardrail

import (
	"context"
	"fmt"

	"github.com/credentio/credentio/pkg/evidence"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
)

// Source names the policy set consulted by this agent.
const Source = "guardrail_policy"

// Agent enforces the pre-billing compliance guardrails.
type Agent struct{}

func NewAgent() *Agent {
	return &Agent{}
}

func (a *Agent) Execute(ctx context.Context, run models.TaskRun, ectx protocol.ExecutionContext) (map[string]any, error) {
	logger := ectx.Logger.With("module", "guardrail_agent")

	if ectx.Passport == nil {
		return nil, protocol.NewExecutionError(protocol.FailureInconsistent,
			"passport is required to evaluate guardrails", nil)
	}

	for _, disclosure := range ectx.Passport.Disclosures {
		if disclosure.Resolved {
			continue
		}

		switch disclosure.Type {
		case "sanction", "disciplinary_action", "dea_action":
			return nil, protocol.NewExecutionError(protocol.FailureCompliance,
				fmt.Sprintf("unresolved %s disclosure in %s", disclosure.Type, disclosure.Jurisdiction), nil)
		}
	}

	checks := []map[string]any{
		{"check": "disclosures", "result": "clear"},
		{"check": "billing_readiness", "result": "clear"},
		{"check": "scheduling_readiness", "result": "clear"},
	}

	logger.InfoContext(ctx, "Guardrail checks passed",
		"workflow_id", run.WorkflowID,
		"checks", len(checks))

	return map[string]any{
		"status":                "clear",
		"checks":                checks,
		evidence.ResultSourceKey: Source,
	}, nil
}
