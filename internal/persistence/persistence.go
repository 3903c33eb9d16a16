// Package persistence implements the workflow loader and execution-record
// store: loadWorkflow pins a snapshot at submission time, and
// saveExecution is idempotent by execution id and accepts partial updates.
package persistence

import (
	"context"

	"github.com/lyzr/flowengine/internal/workflow"
)

// Adapter is the persistence contract the executor and scheduler depend
// on. Implementations must make saveExecution safe to call repeatedly with
// the same execution id: later calls merge into, rather than replace, the
// previously stored record.
type Adapter interface {
	// LoadWorkflow returns the workflow definition, pinned as a snapshot:
	// the caller should treat the returned value as immutable for the
	// lifetime of one execution even if the authoring layer edits the
	// workflow mid-run.
	LoadWorkflow(ctx context.Context, workflowID string) (*workflow.Workflow, error)

	// SaveExecution persists an execution record. Idempotent by
	// record.ID: repeated calls for the same id apply a partial update
	// rather than overwriting fields the caller didn't set.
	SaveExecution(ctx context.Context, record *workflow.Execution) error

	// GetExecution retrieves a previously saved execution record.
	GetExecution(ctx context.Context, executionID string) (*workflow.Execution, error)
}

// ErrWorkflowNotFound is returned by LoadWorkflow for an unknown id.
type ErrWorkflowNotFound struct{ WorkflowID string }

func (e *ErrWorkflowNotFound) Error() string {
	return "persistence: workflow not found: " + e.WorkflowID
}

// ErrExecutionNotFound is returned by GetExecution for an unknown id.
type ErrExecutionNotFound struct{ ExecutionID string }

func (e *ErrExecutionNotFound) Error() string {
	return "persistence: execution not found: " + e.ExecutionID
}
