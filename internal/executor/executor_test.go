package executor_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/flowengine/internal/builtinnodes"
	"github.com/lyzr/flowengine/internal/events"
	"github.com/lyzr/flowengine/internal/executor"
	"github.com/lyzr/flowengine/internal/objectstore"
	"github.com/lyzr/flowengine/internal/registry"
	"github.com/lyzr/flowengine/internal/usage"
	"github.com/lyzr/flowengine/internal/workflow"
)

func newExecutor() *executor.Executor {
	reg := registry.New()
	builtinnodes.Register(reg)
	return &executor.Executor{
		Registry:  reg,
		Store:     objectstore.NewMemoryStore(),
		Accounter: usage.NewMemoryAccounter(1000),
	}
}

func drainEvents(ev *events.Emitter) chan []events.Event {
	collected := make(chan []events.Event, 1)
	go func() {
		var all []events.Event
		for e := range ev.Events() {
			all = append(all, e)
		}
		collected <- all
	}()
	return collected
}

func TestExecuteSucceedsAndRecordsOutputs(t *testing.T) {
	wf := &workflow.Workflow{
		Nodes: []workflow.NodeSpec{{ID: "a", Type: "builtin.add", Config: map[string]any{"a": 3.0, "b": 4.0}}},
	}
	exec := &workflow.Execution{
		ID:             "exec-1",
		OrgID:          "org-1",
		NodeExecutions: map[string]*workflow.NodeExecution{"a": {NodeID: "a", Status: workflow.NodeStatusPending}},
	}
	ev := events.NewEmitter(exec.ID, 8)
	collected := drainEvents(ev)

	err := newExecutor().Execute(context.Background(), wf, exec, "a", ev)
	require.NoError(t, err)
	ev.Close()

	ne := exec.NodeExecutions["a"]
	assert.Equal(t, workflow.NodeStatusCompleted, ne.Status)
	assert.Equal(t, "7", string(ne.Outputs["sum"]))

	evts := <-collected
	require.Len(t, evts, 2)
	assert.Equal(t, events.TypeNodeStart, evts[0].Type)
	assert.Equal(t, events.TypeNodeComplete, evts[1].Type)
}

func TestExecuteNonResourceErrorIsNotRetried(t *testing.T) {
	wf := &workflow.Workflow{
		Nodes: []workflow.NodeSpec{{
			ID: "a", Type: "builtin.fail",
			Retry: &workflow.RetryPolicy{MaxAttempts: 5},
		}},
	}
	exec := &workflow.Execution{
		ID:             "exec-1",
		OrgID:          "org-1",
		NodeExecutions: map[string]*workflow.NodeExecution{"a": {NodeID: "a", Status: workflow.NodeStatusPending}},
	}
	ev := events.NewEmitter(exec.ID, 8)
	collected := drainEvents(ev)

	err := newExecutor().Execute(context.Background(), wf, exec, "a", ev)
	require.Error(t, err)
	ev.Close()
	<-collected

	var nodeErr *workflow.NodeError
	assert.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, workflow.NodeStatusError, exec.NodeExecutions["a"].Status)
}

func TestExecuteEmitsOutputsAsNodeCompletePayload(t *testing.T) {
	wf := &workflow.Workflow{
		Nodes: []workflow.NodeSpec{{ID: "a", Type: "builtin.add", Config: map[string]any{"a": 3.0, "b": 4.0}}},
	}
	exec := &workflow.Execution{
		ID:             "exec-1",
		OrgID:          "org-1",
		NodeExecutions: map[string]*workflow.NodeExecution{"a": {NodeID: "a", Status: workflow.NodeStatusPending}},
	}
	ev := events.NewEmitter(exec.ID, 8)
	collected := drainEvents(ev)

	require.NoError(t, newExecutor().Execute(context.Background(), wf, exec, "a", ev))
	ev.Close()

	evts := <-collected
	require.Len(t, evts, 2)
	require.Equal(t, events.TypeNodeComplete, evts[1].Type)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(evts[1].Payload, &payload))
	assert.Equal(t, "7", string(payload["sum"]), "node-complete payload must carry the node's computed outputs")
}

func TestExecuteFailureRefundsChargeSoALaterNodeCanStillAfford(t *testing.T) {
	reg := registry.New()
	builtinnodes.Register(reg)
	accounter := usage.NewMemoryAccounter(1)
	exec1 := &executor.Executor{
		Registry:  reg,
		Store:     objectstore.NewMemoryStore(),
		Accounter: accounter,
	}

	wf := &workflow.Workflow{
		Nodes: []workflow.NodeSpec{
			{ID: "a", Type: "builtin.fail"},
			{ID: "b", Type: "builtin.add", Config: map[string]any{"a": 1.0, "b": 1.0}},
		},
	}
	exec := &workflow.Execution{
		ID:    "exec-1",
		OrgID: "org-1",
		NodeExecutions: map[string]*workflow.NodeExecution{
			"a": {NodeID: "a", Status: workflow.NodeStatusPending},
			"b": {NodeID: "b", Status: workflow.NodeStatusPending},
		},
	}
	ev := events.NewEmitter(exec.ID, 8)
	collected := drainEvents(ev)

	err := exec1.Execute(context.Background(), wf, exec, "a", ev)
	require.Error(t, err, "node a is expected to fail")

	require.NoError(t, exec1.Execute(context.Background(), wf, exec, "b", ev))
	ev.Close()
	<-collected

	assert.Equal(t, workflow.NodeStatusCompleted, exec.NodeExecutions["b"].Status,
		"node a's charge must be refunded on failure so node b still has budget")

	total, err := accounter.ExecutionTotal(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(usage.DefaultComputeCost), total, "usage must equal the cost of successful nodes only")
}

func TestExecuteResourceErrorIsClassifiedAndRetried(t *testing.T) {
	wf := &workflow.Workflow{
		Nodes: []workflow.NodeSpec{{
			ID:     "a",
			Type:   "builtin.fail",
			Config: map[string]any{"resource": true},
			Retry:  &workflow.RetryPolicy{MaxAttempts: 3, BackoffMS: 1, BackoffMultiplier: 1},
		}},
	}
	exec := &workflow.Execution{
		ID:             "exec-1",
		OrgID:          "org-1",
		NodeExecutions: map[string]*workflow.NodeExecution{"a": {NodeID: "a", Status: workflow.NodeStatusPending}},
	}
	ev := events.NewEmitter(exec.ID, 8)
	collected := drainEvents(ev)

	err := newExecutor().Execute(context.Background(), wf, exec, "a", ev)
	require.Error(t, err)
	ev.Close()
	<-collected

	var resourceErr *workflow.ResourceError
	assert.ErrorAs(t, err, &resourceErr, "a node failure wrapped with AsResourceError must classify as ResourceError")
}

func TestExecuteRejectsWhenBudgetExhausted(t *testing.T) {
	reg := registry.New()
	builtinnodes.Register(reg)
	exec1 := &executor.Executor{
		Registry:  reg,
		Store:     objectstore.NewMemoryStore(),
		Accounter: usage.NewMemoryAccounter(0),
	}

	wf := &workflow.Workflow{
		Nodes: []workflow.NodeSpec{{ID: "a", Type: "builtin.add", Config: map[string]any{"a": 1.0, "b": 1.0}}},
	}
	exec := &workflow.Execution{
		ID:             "exec-1",
		OrgID:          "org-1",
		NodeExecutions: map[string]*workflow.NodeExecution{"a": {NodeID: "a", Status: workflow.NodeStatusPending}},
	}
	ev := events.NewEmitter(exec.ID, 8)

	err := exec1.Execute(context.Background(), wf, exec, "a", ev)
	require.Error(t, err)

	var budgetErr *workflow.BudgetExhausted
	assert.ErrorAs(t, err, &budgetErr)
}

func TestExecuteFanInSumMaterializesRepeatedInputInOrder(t *testing.T) {
	wf := &workflow.Workflow{
		Nodes: []workflow.NodeSpec{
			{ID: "a", Type: "builtin.add", Config: map[string]any{"a": 1.0, "b": 2.0}},
			{ID: "b", Type: "builtin.add", Config: map[string]any{"a": 10.0, "b": 20.0}},
			{ID: "s", Type: "builtin.sum"},
		},
		Edges: []workflow.Edge{
			{FromNode: "a", FromOutput: "sum", ToNode: "s", ToInput: "values"},
			{FromNode: "b", FromOutput: "sum", ToNode: "s", ToInput: "values"},
		},
	}
	exec := &workflow.Execution{
		ID:    "exec-1",
		OrgID: "org-1",
		NodeExecutions: map[string]*workflow.NodeExecution{
			"a": {NodeID: "a", Status: workflow.NodeStatusPending},
			"b": {NodeID: "b", Status: workflow.NodeStatusPending},
			"s": {NodeID: "s", Status: workflow.NodeStatusPending},
		},
	}
	ex := newExecutor()
	ev := events.NewEmitter(exec.ID, 16)
	collected := drainEvents(ev)

	require.NoError(t, ex.Execute(context.Background(), wf, exec, "a", ev))
	require.NoError(t, ex.Execute(context.Background(), wf, exec, "b", ev))
	require.NoError(t, ex.Execute(context.Background(), wf, exec, "s", ev))
	ev.Close()
	<-collected

	assert.Equal(t, "33", string(exec.NodeExecutions["s"].Outputs["sum"]))
}

func TestExecuteBinaryOutputRoundTripsThroughObjectStore(t *testing.T) {
	wf := &workflow.Workflow{
		Nodes: []workflow.NodeSpec{
			{ID: "producer", Type: "builtin.emit_image", Config: map[string]any{"bytes": "pretend-png-bytes", "mimeType": "image/png"}},
			{ID: "consumer", Type: "builtin.passthrough"},
		},
		Edges: []workflow.Edge{{FromNode: "producer", FromOutput: "image", ToNode: "consumer", ToInput: "value"}},
	}
	exec := &workflow.Execution{
		ID:    "exec-1",
		OrgID: "org-1",
		NodeExecutions: map[string]*workflow.NodeExecution{
			"producer": {NodeID: "producer", Status: workflow.NodeStatusPending},
			"consumer": {NodeID: "consumer", Status: workflow.NodeStatusPending},
		},
	}
	ex := newExecutor()
	ev := events.NewEmitter(exec.ID, 16)
	collected := drainEvents(ev)

	require.NoError(t, ex.Execute(context.Background(), wf, exec, "producer", ev))
	require.NoError(t, ex.Execute(context.Background(), wf, exec, "consumer", ev))
	ev.Close()
	<-collected

	var consumerRef struct {
		ID       string `json:"id"`
		MimeType string `json:"mimeType"`
	}
	require.NoError(t, json.Unmarshal(exec.NodeExecutions["consumer"].Outputs["value"], &consumerRef))

	obj, err := ex.Store.Get(context.Background(), "org-1", consumerRef.ID)
	require.NoError(t, err)
	assert.Equal(t, "pretend-png-bytes", string(obj.Data),
		"the reference forwarded downstream must resolve to the bytes the producer emitted")
	assert.Equal(t, "image/png", obj.MimeType)
}
