package audittask

import (
	"github.com/credentio/credentio/pkg/audit"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
)

// Factory creates audit agents bound to the workflow audit trail.
type Factory struct {
	trail *audit.Trail
}

func NewFactory(trail *audit.Trail) *Factory {
	return &Factory{trail: trail}
}

func (f *Factory) Create(_ map[string]any) (protocol.Agent, error) {
	return NewAgent(f.trail), nil
}

func (f *Factory) Kind() models.TaskKind {
	return models.TaskKindAudit
}
