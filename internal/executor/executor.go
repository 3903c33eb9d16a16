// Package executor drives the five-step per-node execution sequence:
// materialize inputs (including ordered repeated-input sequences),
// toRuntime, invoke under a per-node deadline, and on success
// validate+toWire+record, or on error record+surface. Grounded on the
// teacher's coordinator.processWorkerNode / publishToken config resolution
// flow (cmd/workflow-runner/coordinator/coordinator.go), generalized from
// Redis-stream token publication to a direct in-process call.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lyzr/flowengine/internal/events"
	"github.com/lyzr/flowengine/internal/node"
	"github.com/lyzr/flowengine/internal/objectstore"
	"github.com/lyzr/flowengine/internal/param"
	"github.com/lyzr/flowengine/internal/registry"
	"github.com/lyzr/flowengine/internal/usage"
	"github.com/lyzr/flowengine/internal/workflow"
)

// Executor runs a single node to completion against a shared object store,
// usage accounter, and node registry.
type Executor struct {
	Registry     *registry.Registry
	Store        objectstore.Store
	Accounter    usage.Accounter
	NodeDeadline time.Duration
}

// Execute runs nodeID within exec, reading its inputs from the outputs
// already recorded on exec.NodeExecutions and writing its own outputs (or
// error) back onto exec.NodeExecutions[nodeID]. Once the node's cost is
// charged it emits node-start and then exactly one of
// node-complete/node-error on ev. A failure before that point (input
// materialization or the usage charge itself) emits node-error alone, and
// a charge refused for lack of budget emits nothing and returns
// BudgetExhausted.
func (e *Executor) Execute(ctx context.Context, wf *workflow.Workflow, exec *workflow.Execution, nodeID string, ev *events.Emitter) error {
	spec, ok := wf.NodeByID(nodeID)
	if !ok {
		return fmt.Errorf("executor: unknown node %q", nodeID)
	}
	desc, ok := e.Registry.Descriptor(spec.Type)
	if !ok {
		return fmt.Errorf("executor: unknown node type %q", spec.Type)
	}

	// Step 1 + 2: materialize each declared input from upstream outputs (or
	// static config) and convert to its runtime representation.
	runtimeInputs, repeatedInputs, err := e.materializeInputs(wf, exec, nodeID, desc)
	if err != nil {
		return e.fail(ctx, exec, nodeID, ev, &workflow.NodeError{NodeID: nodeID, Err: err}, 0)
	}

	// Reserve the node's compute cost against the org's budget before
	// invoking it; if the node subsequently fails to complete, the
	// reservation is refunded in fail so the usage counter still equals
	// the sum of computeCost over successful nodes only.
	cost := desc.ComputeCost
	if cost == 0 {
		cost = usage.DefaultComputeCost
	}
	ok, err = e.Accounter.Charge(ctx, exec.OrgID, exec.ID, cost)
	if err != nil {
		return e.fail(ctx, exec, nodeID, ev, fmt.Errorf("usage accounting: %w", err), 0)
	}
	if !ok {
		return &workflow.BudgetExhausted{OrgID: exec.OrgID}
	}

	if err := ev.Emit(events.TypeNodeStart, nodeID, nil); err != nil {
		return err
	}
	now := time.Now()
	exec.NodeExecutions[nodeID] = &workflow.NodeExecution{
		NodeID:    nodeID,
		Status:    workflow.NodeStatusRunning,
		StartedAt: &now,
	}

	attempts := 1
	maxAttempts := 1
	var backoff time.Duration
	var multiplier float64 = 1
	if spec.Retry != nil && spec.Retry.MaxAttempts > 0 {
		maxAttempts = spec.Retry.MaxAttempts
		backoff = time.Duration(spec.Retry.BackoffMS) * time.Millisecond
		if spec.Retry.BackoffMultiplier > 0 {
			multiplier = spec.Retry.BackoffMultiplier
		}
	}

	var result *node.Result
	var runErr error
retry:
	for {
		result, runErr = e.invoke(ctx, exec, nodeID, spec, desc, runtimeInputs, repeatedInputs)
		if runErr == nil {
			break
		}
		if attempts >= maxAttempts || !node.IsResourceError(runErr) {
			break
		}
		if backoff > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				runErr = ctx.Err()
				break retry
			}
			backoff = time.Duration(float64(backoff) * multiplier)
		}
		attempts++
	}

	if runErr != nil {
		classified := classify(nodeID, runErr)
		return e.fail(ctx, exec, nodeID, ev, classified, cost)
	}

	// Step 4: on success, validate and convert each declared output back
	// to its wire representation, storing binary payloads in the object
	// store as we go.
	outputs := make(map[string]param.Wire, len(desc.Outputs))
	for _, outDecl := range desc.Outputs {
		rt, present := result.Outputs[outDecl.Name]
		if !present {
			if outDecl.Required {
				return e.fail(ctx, exec, nodeID, ev, &workflow.NodeError{NodeID: nodeID,
					Err: fmt.Errorf("missing required output %q", outDecl.Name)}, cost)
			}
			continue
		}
		storer := func(data []byte, mimeType string) (string, error) {
			return e.Store.Put(ctx, exec.OrgID, data, mimeType, nil)
		}
		wire, err := param.ToWire(outDecl, rt, storer)
		if err != nil {
			return e.fail(ctx, exec, nodeID, ev, &workflow.NodeError{NodeID: nodeID, Err: err}, cost)
		}
		if err := param.Validate(outDecl, wire); err != nil {
			return e.fail(ctx, exec, nodeID, ev, &workflow.NodeError{NodeID: nodeID, Err: err}, cost)
		}
		outputs[outDecl.Name] = wire
	}

	endedAt := time.Now()
	exec.NodeExecutions[nodeID] = &workflow.NodeExecution{
		NodeID:    nodeID,
		Status:    workflow.NodeStatusCompleted,
		Outputs:   outputs,
		StartedAt: &now,
		EndedAt:   &endedAt,
		Attempts:  attempts,
	}
	return ev.Emit(events.TypeNodeComplete, nodeID, outputs)
}

func (e *Executor) invoke(ctx context.Context, exec *workflow.Execution, nodeID string, spec workflow.NodeSpec, desc registry.Descriptor, in map[string]param.Runtime, repeated map[string][]param.Runtime) (*node.Result, error) {
	n, err := e.Registry.NewNode(spec.Type)
	if err != nil {
		return nil, err
	}

	deadline := e.NodeDeadline
	if deadline <= 0 {
		deadline = 300 * time.Second
	}
	nodeCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	nc := &node.Context{
		ExecutionID: exec.ID,
		OrgID:       exec.OrgID,
		NodeID:      nodeID,
		Config:      spec.Config,
		Inputs:      in,
		Repeated:    repeated,
	}

	result, err := n.Execute(nodeCtx, nc)
	if errors.Is(nodeCtx.Err(), context.DeadlineExceeded) {
		return nil, &workflow.Timeout{NodeID: nodeID}
	}
	return result, err
}

// fail records a terminal error against nodeID and emits node-error. If
// refundCost is nonzero, a previously reserved charge of that amount is
// backed out so the usage counter keeps reflecting only successful nodes.
func (e *Executor) fail(ctx context.Context, exec *workflow.Execution, nodeID string, ev *events.Emitter, failure error, refundCost int64) error {
	if refundCost > 0 {
		_ = e.Accounter.Refund(ctx, exec.OrgID, exec.ID, refundCost)
	}

	endedAt := time.Now()
	existing := exec.NodeExecutions[nodeID]
	var startedAt *time.Time
	if existing != nil {
		startedAt = existing.StartedAt
	}
	exec.NodeExecutions[nodeID] = &workflow.NodeExecution{
		NodeID:    nodeID,
		Status:    workflow.NodeStatusError,
		Error:     failure.Error(),
		StartedAt: startedAt,
		EndedAt:   &endedAt,
	}
	if emitErr := ev.Emit(events.TypeNodeError, nodeID, map[string]string{"error": failure.Error()}); emitErr != nil {
		return emitErr
	}
	return failure
}

func classify(nodeID string, err error) error {
	var timeout *workflow.Timeout
	if errors.As(err, &timeout) {
		return timeout
	}
	if node.IsResourceError(err) {
		return &workflow.ResourceError{NodeID: nodeID, Err: err}
	}
	return &workflow.NodeError{NodeID: nodeID, Err: err}
}
