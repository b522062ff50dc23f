// Package protocol defines the contracts between the orchestrator and the
// external verification and integration agents it drives.
package protocol

import (
	"context"
	"log/slog"

	"github.com/credentio/credentio/pkg/models"
)

// ExecutionContext carries the read-only inputs an agent may consult. Agents
// never mutate the passport; they report findings through their result payload.
type ExecutionContext struct {
	WorkflowID string
	Passport   *models.Passport
	Checklist  *models.RequirementsChecklist
	PayerName  string
	Results    map[models.TaskKind]map[string]any
	Logger     *slog.Logger
}

// WithLogger returns a copy of the context using the given logger.
func (ec ExecutionContext) WithLogger(logger *slog.Logger) ExecutionContext {
	ec.Logger = logger

	return ec
}

// Agent executes one task kind. Implementations must be idempotent or safely
// retryable: the scheduler may invoke Execute again after a transient failure.
type Agent interface {
	Execute(ctx context.Context, run models.TaskRun, ectx ExecutionContext) (map[string]any, error)
}

// AgentFactory creates agent instances for one task kind.
type AgentFactory interface {
	Create(config map[string]any) (Agent, error)
	Kind() models.TaskKind
}
