// Package validator runs the six ordered structural checks a workflow must
// pass before it can be scheduled, generalized from the teacher's
// compiler.validate terminal/entry/cycle checks down to the plain
// DAG-only shape this engine requires (no loop exemption: loops are out of
// scope here).
package validator

import (
	"fmt"

	"github.com/lyzr/flowengine/internal/param"
	"github.com/lyzr/flowengine/internal/registry"
	"github.com/lyzr/flowengine/internal/workflow"
)

// Validate runs the six checks in order and returns every error found by
// checks 2-6 rather than stopping at the first. Check 1 gates the rest: if
// any edge endpoint is dangling, only those errors are returned, since
// kind/arity checks are meaningless once an endpoint does not resolve.
func Validate(wf *workflow.Workflow, reg *registry.Registry) []*workflow.ValidationError {
	var errs []*workflow.ValidationError

	nodeIndex := make(map[string]workflow.NodeSpec, len(wf.Nodes))
	for _, n := range wf.Nodes {
		nodeIndex[n.ID] = n
	}

	// 1. Edge endpoints resolve to declared nodes.
	danglingFound := false
	for i, e := range wf.Edges {
		ref := fmt.Sprintf("edges[%d]", i)
		if _, ok := nodeIndex[e.FromNode]; !ok {
			errs = append(errs, &workflow.ValidationError{
				Code: workflow.ErrCodeDanglingEdge, EdgeRef: ref,
				Message: fmt.Sprintf("edge %s: unknown source node %q", ref, e.FromNode),
			})
			danglingFound = true
		}
		if _, ok := nodeIndex[e.ToNode]; !ok {
			errs = append(errs, &workflow.ValidationError{
				Code: workflow.ErrCodeDanglingEdge, EdgeRef: ref,
				Message: fmt.Sprintf("edge %s: unknown target node %q", ref, e.ToNode),
			})
			danglingFound = true
		}
	}
	if danglingFound {
		// Every later check assumes edges resolve; nothing past this point
		// can be checked meaningfully.
		return errs
	}

	// Resolve each node's registry descriptor up front; nodes with an
	// unknown type fail check 2 below and are skipped by the rest.
	descriptors := make(map[string]registry.Descriptor, len(wf.Nodes))
	for _, n := range wf.Nodes {
		d, ok := reg.Descriptor(n.Type)
		if !ok {
			errs = append(errs, &workflow.ValidationError{
				Code: workflow.ErrCodeUnknownParam, NodeID: n.ID,
				Message: fmt.Sprintf("node %s: unknown node type %q", n.ID, n.Type),
			})
			continue
		}
		descriptors[n.ID] = d
	}

	// 2. Named input/output parameters referenced by edges exist on their
	// node's descriptor.
	for i, e := range wf.Edges {
		ref := fmt.Sprintf("edges[%d]", i)
		fromDesc, ok := descriptors[e.FromNode]
		if !ok {
			continue
		}
		outDecl, ok := fromDesc.OutputByName(e.FromOutput)
		if !ok {
			errs = append(errs, &workflow.ValidationError{
				Code: workflow.ErrCodeUnknownParam, EdgeRef: ref,
				Message: fmt.Sprintf("edge %s: node %s has no output %q", ref, e.FromNode, e.FromOutput),
			})
			continue
		}
		toDesc, ok := descriptors[e.ToNode]
		if !ok {
			continue
		}
		inDecl, ok := toDesc.InputByName(e.ToInput)
		if !ok {
			errs = append(errs, &workflow.ValidationError{
				Code: workflow.ErrCodeUnknownParam, EdgeRef: ref,
				Message: fmt.Sprintf("edge %s: node %s has no input %q", ref, e.ToNode, e.ToInput),
			})
			continue
		}

		// 3. Kind assignability between the connected parameters.
		if !param.Assignable(outDecl.Kind, inDecl.Kind) {
			errs = append(errs, &workflow.ValidationError{
				Code: workflow.ErrCodeKindMismatch, EdgeRef: ref,
				Message: fmt.Sprintf("edge %s: %s is not assignable to %s", ref, outDecl.Kind, inDecl.Kind),
			})
		}
	}

	// 4. Arity: a non-repeated input accepts at most one incoming edge.
	inboundCount := make(map[string]int) // "nodeID/inputName" -> count
	for _, e := range wf.Edges {
		inboundCount[e.ToNode+"/"+e.ToInput]++
	}
	for _, n := range wf.Nodes {
		desc, ok := descriptors[n.ID]
		if !ok {
			continue
		}
		for _, in := range desc.Inputs {
			if in.Repeated {
				continue
			}
			if inboundCount[n.ID+"/"+in.Name] > 1 {
				errs = append(errs, &workflow.ValidationError{
					Code: workflow.ErrCodeArityViolation, NodeID: n.ID,
					Message: fmt.Sprintf("node %s: input %q is not repeated but has multiple incoming edges", n.ID, in.Name),
				})
			}
		}
	}

	// 5. Required inputs are connected or supplied via node config.
	for _, n := range wf.Nodes {
		desc, ok := descriptors[n.ID]
		if !ok {
			continue
		}
		for _, in := range desc.Inputs {
			if !in.Required {
				continue
			}
			if inboundCount[n.ID+"/"+in.Name] > 0 {
				continue
			}
			if _, fromConfig := n.Config[in.Name]; fromConfig {
				continue
			}
			errs = append(errs, &workflow.ValidationError{
				Code: workflow.ErrCodeMissingRequired, NodeID: n.ID,
				Message: fmt.Sprintf("node %s: required input %q has no source", n.ID, in.Name),
			})
		}
	}

	// 6. Cycle detection via Kahn's algorithm: the graph is a DAG iff every
	// node can be peeled off in topological order.
	if cyc := detectCycle(wf); len(cyc) > 0 {
		errs = append(errs, &workflow.ValidationError{
			Code:    workflow.ErrCodeCycle,
			Message: fmt.Sprintf("cycle detected involving nodes: %v", cyc),
		})
	}

	return errs
}

// detectCycle runs Kahn's algorithm: repeatedly peel off nodes with
// in-degree zero. If any nodes remain once no more can be peeled, they lie
// on a cycle.
func detectCycle(wf *workflow.Workflow) []string {
	inDegree := make(map[string]int, len(wf.Nodes))
	adj := make(map[string][]string, len(wf.Nodes))
	for _, n := range wf.Nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range wf.Edges {
		adj[e.FromNode] = append(adj[e.FromNode], e.ToNode)
		inDegree[e.ToNode]++
	}

	var queue []string
	for _, n := range wf.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, succ := range adj[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if visited == len(wf.Nodes) {
		return nil
	}

	var remaining []string
	for _, n := range wf.Nodes {
		if inDegree[n.ID] > 0 {
			remaining = append(remaining, n.ID)
		}
	}
	return remaining
}
