// Package node defines the uniform runtime contract every node
// implementation satisfies: a single execute(context) -> result method,
// polymorphism over capability rather than an inheritance hierarchy.
package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/lyzr/flowengine/internal/param"
)

// ErrResource marks a node failure as transient and worth retrying. A node
// wraps its returned error with AsResourceError to opt into the executor's
// retry policy instead of the default non-retried NodeError classification.
var ErrResource = errors.New("resource error")

// AsResourceError wraps err so the executor classifies this failure as
// retryable per the node's RetryPolicy.
func AsResourceError(err error) error {
	return fmt.Errorf("%w: %w", ErrResource, err)
}

// IsResourceError reports whether err was wrapped with AsResourceError.
func IsResourceError(err error) bool {
	return errors.Is(err, ErrResource)
}

// Node is the capability every registry entry's factory produces. The
// scheduler and executor never type-switch on node kind; they only ever
// call Execute.
type Node interface {
	Execute(ctx context.Context, nc *Context) (*Result, error)
}

// Context carries everything a node's Execute needs: its resolved inputs,
// static config, and identity for logging/tracing. Sleep/DoStep are
// modeled as an optional DurableHooks pointer rather than methods on
// Context itself, since this in-process engine has no durable execution
// backend to checkpoint against (spec Open Question, left unresolved
// deliberately — see DESIGN.md).
type Context struct {
	ExecutionID string
	OrgID       string
	NodeID      string
	Config      map[string]any
	Inputs      map[string]param.Runtime
	Repeated    map[string][]param.Runtime
	Durable     *DurableHooks
}

// Input returns the runtime value bound to the named input, and whether it
// was present.
func (c *Context) Input(name string) (param.Runtime, bool) {
	v, ok := c.Inputs[name]
	return v, ok
}

// RepeatedInput returns the ordered sequence of runtime values bound to a
// repeated input, in edge-declaration order.
func (c *Context) RepeatedInput(name string) []param.Runtime {
	return c.Repeated[name]
}

// DurableHooks exposes checkpoint-shaped operations to a node that wants
// to suspend and resume across a durable execution boundary. Nil in this
// in-process engine; present so a future durable backend can be plugged in
// without changing the Node interface.
type DurableHooks struct {
	Sleep  func(ctx context.Context, d any) error
	DoStep func(ctx context.Context, name string, fn func() (any, error)) (any, error)
}

// Result is what a node returns from a successful Execute call.
type Result struct {
	Outputs map[string]param.Runtime
}

// Success builds a Result from a set of named outputs.
func Success(outputs map[string]param.Runtime) *Result {
	return &Result{Outputs: outputs}
}
