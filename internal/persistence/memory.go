package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/lyzr/flowengine/internal/workflow"
)

// MemoryAdapter is an in-process adapter for tests and local/dev runs. It
// applies the same JSON Merge Patch partial-update discipline as
// PostgresAdapter so tests exercise the real merge semantics, not a
// simplified stand-in.
type MemoryAdapter struct {
	mu         sync.Mutex
	workflows  map[string]*workflow.Workflow
	executions map[string]json.RawMessage
}

// NewMemoryAdapter creates an adapter seeded with the given workflows.
func NewMemoryAdapter(workflows map[string]*workflow.Workflow) *MemoryAdapter {
	wfs := make(map[string]*workflow.Workflow, len(workflows))
	for id, wf := range workflows {
		wfs[id] = wf
	}
	return &MemoryAdapter{
		workflows:  wfs,
		executions: make(map[string]json.RawMessage),
	}
}

// PutWorkflow registers or replaces a workflow definition.
func (a *MemoryAdapter) PutWorkflow(wf *workflow.Workflow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.workflows[wf.ID] = wf
}

func (a *MemoryAdapter) LoadWorkflow(ctx context.Context, workflowID string) (*workflow.Workflow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	wf, ok := a.workflows[workflowID]
	if !ok {
		return nil, &ErrWorkflowNotFound{WorkflowID: workflowID}
	}
	cp := *wf
	return &cp, nil
}

func (a *MemoryAdapter) SaveExecution(ctx context.Context, record *workflow.Execution) error {
	record.UpdatedAt = time.Now()

	patch, err := json.Marshal(record)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.executions[record.ID]
	if !ok {
		a.executions[record.ID] = patch
		return nil
	}

	merged, err := jsonpatch.MergePatch(existing, patch)
	if err != nil {
		return err
	}
	a.executions[record.ID] = merged
	return nil
}

func (a *MemoryAdapter) GetExecution(ctx context.Context, executionID string) (*workflow.Execution, error) {
	a.mu.Lock()
	raw, ok := a.executions[executionID]
	a.mu.Unlock()
	if !ok {
		return nil, &ErrExecutionNotFound{ExecutionID: executionID}
	}
	var rec workflow.Execution
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
