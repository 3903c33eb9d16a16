// Package workflow holds the data model shared by every other internal
// package: the workflow graph itself (nodes with their static config, and
// the edges between them), and the execution/record types the scheduler and
// persistence adapter read and write. Parameter declarations live on the
// registry descriptors, not here.
package workflow

import (
	"time"

	"github.com/lyzr/flowengine/internal/param"
)

// NodeSpec describes one node in a workflow graph: which registry entry to
// instantiate and the static configuration passed to it.
type NodeSpec struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Config   map[string]any `json:"config,omitempty"`
	Retry    *RetryPolicy   `json:"retry,omitempty"`
}

// RetryPolicy carries the teacher's retry schema onto a node. It only
// applies to node failures classified as resource errors (transient,
// infrastructure-shaped) — application-logic failures are never retried.
type RetryPolicy struct {
	MaxAttempts       int     `json:"maxAttempts"`
	BackoffMS         int     `json:"backoffMs"`
	BackoffMultiplier float64 `json:"backoffMultiplier"`
}

// Edge connects one node's named output to another node's named input.
type Edge struct {
	FromNode   string `json:"fromNode"`
	FromOutput string `json:"fromOutput"`
	ToNode     string `json:"toNode"`
	ToInput    string `json:"toInput"`
}

// Workflow is the full graph: nodes and the edges between them. The
// validator and executor resolve each node's declared input/output
// parameters from its registry descriptor; they are not stored here.
type Workflow struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"orgId"`
	Name        string     `json:"name"`
	Nodes       []NodeSpec `json:"nodes"`
	Edges       []Edge     `json:"edges"`
	VersionHash string     `json:"versionHash"`
}

// NodeByID returns the node with the given id, or false if absent.
func (w *Workflow) NodeByID(id string) (NodeSpec, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// ExecutionStatus is one of the four terminal statuses, or "running" while
// the scheduler has the execution in flight.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusError     ExecutionStatus = "error"
	StatusCancelled ExecutionStatus = "cancelled"
	StatusExhausted ExecutionStatus = "exhausted"
)

// NodeExecutionStatus tracks a single node's progress within an execution.
type NodeExecutionStatus string

const (
	NodeStatusPending   NodeExecutionStatus = "pending"
	NodeStatusRunning   NodeExecutionStatus = "running"
	NodeStatusCompleted NodeExecutionStatus = "completed"
	NodeStatusError     NodeExecutionStatus = "error"
	NodeStatusSkipped   NodeExecutionStatus = "skipped"
)

// NodeExecution is the per-node record persisted as part of an Execution.
type NodeExecution struct {
	NodeID     string                    `json:"nodeId"`
	Status     NodeExecutionStatus       `json:"status"`
	Outputs    map[string]param.Wire     `json:"outputs,omitempty"`
	Error      string                    `json:"error,omitempty"`
	StartedAt  *time.Time                `json:"startedAt,omitempty"`
	EndedAt    *time.Time                `json:"endedAt,omitempty"`
	Attempts   int                       `json:"attempts,omitempty"`
}

// Execution is the durable record of one workflow run.
type Execution struct {
	ID             string                    `json:"id"`
	WorkflowID     string                    `json:"workflowId"`
	OrgID          string                    `json:"orgId"`
	VersionHash    string                    `json:"versionHash"`
	Status         ExecutionStatus           `json:"status,omitempty"`
	Inputs         map[string]param.Wire     `json:"inputs,omitempty"`
	NodeExecutions map[string]*NodeExecution `json:"nodeExecutions,omitempty"`
	ComputeCost    int64                     `json:"computeCost,omitempty"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

// ValidationError describes a single workflow validation failure (spec.md
// §4.4). Code identifies which of the six ordered checks produced it.
type ValidationError struct {
	Code    string `json:"code"`
	NodeID  string `json:"nodeId,omitempty"`
	EdgeRef string `json:"edgeRef,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

const (
	ErrCodeDanglingEdge    = "DANGLING_EDGE"
	ErrCodeUnknownParam    = "UNKNOWN_PARAM"
	ErrCodeKindMismatch    = "TYPE_MISMATCH"
	ErrCodeArityViolation  = "ARITY_VIOLATION"
	ErrCodeMissingRequired = "INVALID_CONNECTION"
	ErrCodeCycle           = "CYCLE_DETECTED"
)
