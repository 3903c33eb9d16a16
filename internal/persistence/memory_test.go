package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/flowengine/internal/persistence"
	"github.com/lyzr/flowengine/internal/workflow"
)

func TestMemoryAdapterLoadWorkflowReturnsSeeded(t *testing.T) {
	wf := &workflow.Workflow{ID: "wf-1", Name: "seeded"}
	a := persistence.NewMemoryAdapter(map[string]*workflow.Workflow{"wf-1": wf})

	got, err := a.LoadWorkflow(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "seeded", got.Name)
}

func TestMemoryAdapterLoadWorkflowMissingReturnsNotFound(t *testing.T) {
	a := persistence.NewMemoryAdapter(nil)
	_, err := a.LoadWorkflow(context.Background(), "nope")
	var notFound *persistence.ErrWorkflowNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestMemoryAdapterSaveExecutionMergesPartialUpdates(t *testing.T) {
	a := persistence.NewMemoryAdapter(nil)
	ctx := context.Background()

	first := &workflow.Execution{
		ID:     "exec-1",
		OrgID:  "org-1",
		Status: workflow.StatusRunning,
		NodeExecutions: map[string]*workflow.NodeExecution{
			"a": {NodeID: "a", Status: workflow.NodeStatusCompleted},
			"b": {NodeID: "b", Status: workflow.NodeStatusPending},
		},
	}
	require.NoError(t, a.SaveExecution(ctx, first))

	// The scheduler always saves the same mutable *Execution it keeps
	// updating in place, so identity fields like OrgID stay populated on
	// every call; only the map contents actually change between saves.
	second := &workflow.Execution{
		ID:    "exec-1",
		OrgID: "org-1",
		NodeExecutions: map[string]*workflow.NodeExecution{
			"b": {NodeID: "b", Status: workflow.NodeStatusCompleted},
		},
	}
	require.NoError(t, a.SaveExecution(ctx, second))

	got, err := a.GetExecution(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.NodeStatusCompleted, got.NodeExecutions["a"].Status,
		"node a's prior state must survive a patch that only mentions node b")
	assert.Equal(t, workflow.NodeStatusCompleted, got.NodeExecutions["b"].Status)
	assert.Equal(t, workflow.StatusRunning, got.Status,
		"Status has an omitempty tag, so a save that omits it must not clear the prior value")
}

func TestMemoryAdapterGetExecutionMissingReturnsNotFound(t *testing.T) {
	a := persistence.NewMemoryAdapter(nil)
	_, err := a.GetExecution(context.Background(), "nope")
	var notFound *persistence.ErrExecutionNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestMemoryAdapterPutWorkflowRegistersNewDefinition(t *testing.T) {
	a := persistence.NewMemoryAdapter(nil)
	a.PutWorkflow(&workflow.Workflow{ID: "wf-2", Name: "added later"})

	got, err := a.LoadWorkflow(context.Background(), "wf-2")
	require.NoError(t, err)
	assert.Equal(t, "added later", got.Name)
}
