package audittask_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/credentio/credentio/pkg/agents/audittask"
	"github.com/credentio/credentio/pkg/audit"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/persistence/file"
	"github.com/credentio/credentio/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*audittask.Agent, *audit.Trail, *file.Persistence) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	trail := audit.NewTrail(persistence.AuditRepository(), slog.Default())

	return audittask.NewAgent(trail), trail, persistence
}

func testRun() models.TaskRun {
	return models.TaskRun{ID: "task-audit-1", WorkflowID: "wf-test-0001", Kind: models.TaskKindAudit}
}

func TestAgent_Execute(t *testing.T) {
	t.Parallel()

	agent, trail, _ := setup(t)
	ctx := context.Background()

	for _, action := range []string{models.AuditWorkflowCreated, models.AuditWorkflowStarted, models.AuditTaskDispatched} {
		_, err := trail.Append(ctx, "wf-test-0001", audit.ActorSystem, action, "", nil)
		require.NoError(t, err)
	}

	result, err := agent.Execute(ctx, testRun(), protocol.ExecutionContext{Logger: slog.Default()})
	require.NoError(t, err)

	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, 3, result["events_checked"])
	assert.Equal(t, audittask.Source, result["source"])
}

func TestAgent_Execute_EmptyTrail(t *testing.T) {
	t.Parallel()

	agent, _, _ := setup(t)

	result, err := agent.Execute(context.Background(), testRun(), protocol.ExecutionContext{Logger: slog.Default()})
	require.NoError(t, err)
	assert.Equal(t, 0, result["events_checked"])
}

func TestAgent_Execute_BrokenSequence(t *testing.T) {
	t.Parallel()

	agent, _, persistence := setup(t)
	ctx := context.Background()

	// Write events with a hole in the sequence directly, bypassing the trail.
	repo := persistence.AuditRepository()
	for _, seq := range []int64{1, 3} {
		require.NoError(t, repo.Append(ctx, &models.AuditEvent{
			ID:         fmt.Sprintf("evt-%d", seq),
			WorkflowID: "wf-test-0001",
			Seq:        seq,
			Actor:      audit.ActorSystem,
			Action:     models.AuditTaskDispatched,
			CreatedAt:  time.Now().UTC(),
		}))
	}

	_, err := agent.Execute(ctx, testRun(), protocol.ExecutionContext{Logger: slog.Default()})
	require.Error(t, err)
	assert.Equal(t, protocol.FailureInconsistent, protocol.CodeOf(err))
	assert.Contains(t, err.Error(), "audit sequence broken")
}
