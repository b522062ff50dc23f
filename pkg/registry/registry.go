// Package registry declares the available task kinds, their static dependency
// requirements, and the agent factories that implement them. The registry is
// populated at startup and read-only afterwards, so no locking is needed.
package registry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
)

// Definition is the static declaration of one task kind.
type Definition struct {
	Kind           models.TaskKind
	DependsOn      []models.TaskKind
	CapabilityTags []string
	DefaultTimeout time.Duration
	MaxRetries     int
	ResultSchema   map[string]any
}

type entry struct {
	definition Definition
	factory    protocol.AgentFactory
}

type Registry struct {
	logger  *slog.Logger
	entries map[models.TaskKind]entry
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		entries: make(map[models.TaskKind]entry),
	}
}

// Register adds a task kind with its agent factory. Registering the same kind
// twice replaces the earlier entry.
func (r *Registry) Register(def Definition, factory protocol.AgentFactory) {
	if def.DefaultTimeout == 0 {
		def.DefaultTimeout = 30 * time.Second
	}

	if def.MaxRetries == 0 {
		def.MaxRetries = 3
	}

	r.entries[def.Kind] = entry{definition: def, factory: factory}
}

// Definition returns the static declaration for the kind.
func (r *Registry) Definition(kind models.TaskKind) (Definition, bool) {
	e, ok := r.entries[kind]

	return e.definition, ok
}

// Kinds returns every registered task kind.
func (r *Registry) Kinds() []models.TaskKind {
	kinds := make([]models.TaskKind, 0, len(r.entries))
	for kind := range r.entries {
		kinds = append(kinds, kind)
	}

	return kinds
}

// CreateAgent instantiates the agent implementing the kind.
func (r *Registry) CreateAgent(kind models.TaskKind, config map[string]any) (protocol.Agent, error) {
	e, ok := r.entries[kind]
	if !ok {
		return nil, fmt.Errorf("task kind '%s' not registered", kind)
	}

	return e.factory.Create(config)
}

// HealthCheck reports whether the registry holds at least one task kind.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.entries) == 0 {
		return "no task kinds registered", false
	}

	return fmt.Sprintf("%d task kinds registered", len(r.entries)), true
}
