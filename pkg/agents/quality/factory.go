package quality

import (
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
)

// Factory creates quality agents.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(_ map[string]any) (protocol.Agent, error) {
	return NewAgent(), nil
}

func (f *Factory) Kind() models.TaskKind {
	return models.TaskKindQuality
}
