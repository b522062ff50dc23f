package registry_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
	"github.com/credentio/credentio/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgent struct{}

func (stubAgent) Execute(_ context.Context, _ models.TaskRun, _ protocol.ExecutionContext) (map[string]any, error) {
	return map[string]any{"status": "ok"}, nil
}

type stubFactory struct {
	kind models.TaskKind
}

func (f stubFactory) Create(_ map[string]any) (protocol.Agent, error) {
	return stubAgent{}, nil
}

func (f stubFactory) Kind() models.TaskKind {
	return f.kind
}

func TestRegistry_Register_Defaults(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindIntake}, stubFactory{kind: models.TaskKindIntake})

	def, ok := reg.Definition(models.TaskKindIntake)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, def.DefaultTimeout)
	assert.Equal(t, 3, def.MaxRetries)
}

func TestRegistry_Register_ExplicitValuesKept(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{
		Kind:           models.TaskKindVerification,
		DefaultTimeout: 60 * time.Second,
		MaxRetries:     5,
	}, stubFactory{kind: models.TaskKindVerification})

	def, ok := reg.Definition(models.TaskKindVerification)
	require.True(t, ok)
	assert.Equal(t, 60*time.Second, def.DefaultTimeout)
	assert.Equal(t, 5, def.MaxRetries)
}

func TestRegistry_Definition_Unknown(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())

	_, ok := reg.Definition(models.TaskKindAudit)
	assert.False(t, ok)
}

func TestRegistry_CreateAgent(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindIntake}, stubFactory{kind: models.TaskKindIntake})

	agent, err := reg.CreateAgent(models.TaskKindIntake, nil)
	require.NoError(t, err)
	assert.NotNil(t, agent)

	_, err = reg.CreateAgent(models.TaskKindGuardrail, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_ValidateResult(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{
		Kind:         models.TaskKindQuality,
		ResultSchema: registry.StatusResultSchema(),
	}, stubFactory{kind: models.TaskKindQuality})

	require.NoError(t, reg.ValidateResult(models.TaskKindQuality, map[string]any{"status": "ok"}))

	err := reg.ValidateResult(models.TaskKindQuality, map[string]any{"issues": []string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match schema")

	err = reg.ValidateResult(models.TaskKindQuality, map[string]any{"status": 42})
	require.Error(t, err)
}

func TestRegistry_ValidateResult_NoSchemaAcceptsAnything(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())
	reg.Register(registry.Definition{Kind: models.TaskKindIntake}, stubFactory{kind: models.TaskKindIntake})

	assert.NoError(t, reg.ValidateResult(models.TaskKindIntake, map[string]any{"whatever": true}))
}

func TestRegistry_HealthCheck(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())

	message, ok := reg.HealthCheck()
	assert.False(t, ok)
	assert.Contains(t, message, "no task kinds")

	reg.Register(registry.Definition{Kind: models.TaskKindIntake}, stubFactory{kind: models.TaskKindIntake})

	message, ok = reg.HealthCheck()
	assert.True(t, ok)
	assert.Contains(t, message, "1 task kinds")

	assert.Len(t, reg.Kinds(), 1)
}
