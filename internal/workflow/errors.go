package workflow

import "fmt"

// NodeError is a node-level application failure: the node ran and decided
// its input was unusable, or its own logic failed in a way that a retry
// would not fix. Scheduling treats it the same as ResourceError for
// skip-propagation purposes, but the executor never retries it.
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// ResourceError marks a node failure as transient/infrastructure-shaped
// (timeouts talking to a dependency, rate limiting, connection resets).
// The executor retries these up to the node's RetryPolicy before giving up.
type ResourceError struct {
	NodeID string
	Err    error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("node %s: resource error: %v", e.NodeID, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// BudgetExhausted is returned when an organization's monthly compute
// budget is depleted before a node can run; the execution terminates with
// status "exhausted" rather than "error".
type BudgetExhausted struct {
	OrgID string
}

func (e *BudgetExhausted) Error() string {
	return fmt.Sprintf("organization %s has exhausted its monthly budget", e.OrgID)
}

// Cancelled marks an execution that ended because its context was
// cancelled (caller disconnect, explicit cancel call).
type Cancelled struct {
	ExecutionID string
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("execution %s cancelled", e.ExecutionID)
}

// Timeout marks a node that exceeded its per-node deadline
// (NODE_DEADLINE_SECONDS).
type Timeout struct {
	NodeID string
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("node %s: timeout", e.NodeID)
}
