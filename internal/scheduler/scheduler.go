// Package scheduler drives a workflow's execution: in-degree-based
// ready-set expansion, a bounded worker pool for fan-out, skip-propagation
// on node failure, and the four terminal execution statuses. Grounded on
// the teacher's coordinator.Coordinator choreography loop
// (cmd/workflow-runner/coordinator/coordinator.go), generalized from
// Redis-stream dispatch to a single-process bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/lyzr/flowengine/internal/events"
	"github.com/lyzr/flowengine/internal/executor"
	"github.com/lyzr/flowengine/internal/persistence"
	"github.com/lyzr/flowengine/internal/workflow"
)

// Scheduler runs one workflow execution to a terminal status.
type Scheduler struct {
	Executor    *executor.Executor
	Persistence persistence.Adapter
	Parallelism int
}

type nodeResult struct {
	nodeID string
	err    error
}

// Run drives exec (already seeded with a pending NodeExecution per node
// and a frozen workflow snapshot) to completion, emitting events on ev and
// persisting the final record via s.Persistence.
func (s *Scheduler) Run(ctx context.Context, wf *workflow.Workflow, exec *workflow.Execution, ev *events.Emitter) error {
	inDegree := make(map[string]int, len(wf.Nodes))
	successors := make(map[string][]string, len(wf.Nodes))
	for _, n := range wf.Nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range wf.Edges {
		successors[e.FromNode] = append(successors[e.FromNode], e.ToNode)
		inDegree[e.ToNode]++
	}

	pending := make(map[string]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		pending[n.ID] = true
	}

	parallelism := s.Parallelism
	if parallelism < 1 {
		parallelism = 4
	}

	ready := make(chan string, len(wf.Nodes))
	results := make(chan nodeResult, len(wf.Nodes))

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < parallelism; i++ {
		go func() {
			for nodeID := range ready {
				err := s.Executor.Execute(workerCtx, wf, exec, nodeID, ev)
				results <- nodeResult{nodeID: nodeID, err: err}
			}
		}()
	}

	var initial []string
	for id, deg := range inDegree {
		if deg == 0 {
			initial = append(initial, id)
		}
	}
	sort.Strings(initial)
	for _, id := range initial {
		ready <- id
	}

	remaining := len(wf.Nodes)
	var terminal workflow.ExecutionStatus = workflow.StatusCompleted

loop:
	for remaining > 0 {
		select {
		case <-ctx.Done():
			terminal = workflow.StatusCancelled
			break loop

		case res := <-results:
			remaining--
			delete(pending, res.nodeID)

			if res.err == nil {
				s.admitSuccessors(successors, inDegree, pending, res.nodeID, ready)
				continue
			}

			var budgetErr *workflow.BudgetExhausted
			if errors.As(res.err, &budgetErr) {
				terminal = workflow.StatusExhausted
				break loop
			}

			terminal = workflow.StatusError
			skipped := s.skipDownstream(exec, successors, res.nodeID, pending, ev)
			remaining -= len(skipped)
		}
	}
	close(ready)

	if terminal == workflow.StatusCompleted {
		for _, ne := range exec.NodeExecutions {
			if ne.Status == workflow.NodeStatusError {
				terminal = workflow.StatusError
				break
			}
		}
	}

	exec.Status = terminal
	if err := ev.Emit(terminalEventType(terminal), "", map[string]string{"status": string(terminal)}); err != nil {
		return err
	}
	ev.Close()

	return s.Persistence.SaveExecution(ctx, exec)
}

// admitSuccessors decrements the in-degree of every successor of a
// completed node and enqueues any that reach zero, in deterministic
// node-id order when more than one becomes ready at once.
func (s *Scheduler) admitSuccessors(successors map[string][]string, inDegree map[string]int, pending map[string]bool, nodeID string, ready chan<- string) {
	var newlyReady []string
	for _, succ := range successors[nodeID] {
		if !pending[succ] {
			continue
		}
		inDegree[succ]--
		if inDegree[succ] == 0 {
			newlyReady = append(newlyReady, succ)
		}
	}
	sort.Strings(newlyReady)
	for _, id := range newlyReady {
		ready <- id
	}
}

// skipDownstream marks every node transitively reachable from a failed
// node as skipped, without executing them, and emits node-skip for each,
// naming the upstream node whose failure caused it.
func (s *Scheduler) skipDownstream(exec *workflow.Execution, successors map[string][]string, failedNode string, pending map[string]bool, ev *events.Emitter) []string {
	type queued struct {
		id    string
		cause string
	}

	var skipped []string
	visited := make(map[string]bool)
	var queue []queued
	for _, succ := range successors[failedNode] {
		queue = append(queue, queued{id: succ, cause: failedNode})
	}

	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		if visited[q.id] || !pending[q.id] {
			continue
		}
		visited[q.id] = true

		exec.NodeExecutions[q.id] = &workflow.NodeExecution{
			NodeID: q.id,
			Status: workflow.NodeStatusSkipped,
		}
		ev.Emit(events.TypeNodeSkip, q.id, map[string]string{
			"reason": fmt.Sprintf("upstream node %q failed", q.cause),
		})
		delete(pending, q.id)
		skipped = append(skipped, q.id)

		for _, succ := range successors[q.id] {
			queue = append(queue, queued{id: succ, cause: q.id})
		}
	}
	return skipped
}

func terminalEventType(status workflow.ExecutionStatus) events.Type {
	if status == workflow.StatusCompleted {
		return events.TypeExecutionComplete
	}
	return events.TypeExecutionError
}
