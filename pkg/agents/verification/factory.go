package verification

import (
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
)

// Factory creates verification agents.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any) (protocol.Agent, error) {
	return NewAgent(config), nil
}

func (f *Factory) Kind() models.TaskKind {
	return models.TaskKindVerification
}
