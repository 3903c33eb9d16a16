package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lyzr/flowengine/internal/param"
	"github.com/lyzr/flowengine/internal/registry"
	"github.com/lyzr/flowengine/internal/workflow"
)

// materializeInputs resolves every declared input of nodeID to its runtime
// representation: non-repeated inputs from at most one incoming edge (or
// static config when unconnected), repeated inputs from the ordered
// sequence of all incoming edges for that input name.
func (e *Executor) materializeInputs(wf *workflow.Workflow, exec *workflow.Execution, nodeID string, desc registry.Descriptor) (map[string]param.Runtime, map[string][]param.Runtime, error) {
	ctx := context.Background()
	fetch := func(id string) ([]byte, string, error) {
		obj, err := e.Store.Get(ctx, exec.OrgID, id)
		if err != nil {
			return nil, "", err
		}
		return obj.Data, obj.MimeType, nil
	}

	runtimeInputs := make(map[string]param.Runtime, len(desc.Inputs))
	repeatedInputs := make(map[string][]param.Runtime)

	for _, in := range desc.Inputs {
		var edges []workflow.Edge
		for _, edge := range wf.Edges {
			if edge.ToNode == nodeID && edge.ToInput == in.Name {
				edges = append(edges, edge)
			}
		}

		if in.Repeated {
			seq := make([]param.Runtime, 0, len(edges))
			for _, edge := range edges {
				wire, err := upstreamOutput(exec, edge.FromNode, edge.FromOutput)
				if err != nil {
					return nil, nil, err
				}
				rt, err := param.ToRuntime(in, wire, fetch)
				if err != nil {
					return nil, nil, fmt.Errorf("input %q: %w", in.Name, err)
				}
				seq = append(seq, rt)
			}
			repeatedInputs[in.Name] = seq
			continue
		}

		if len(edges) > 0 {
			wire, err := upstreamOutput(exec, edges[0].FromNode, edges[0].FromOutput)
			if err != nil {
				return nil, nil, err
			}
			rt, err := param.ToRuntime(in, wire, fetch)
			if err != nil {
				return nil, nil, fmt.Errorf("input %q: %w", in.Name, err)
			}
			runtimeInputs[in.Name] = rt
			continue
		}

		if raw, ok := nodeConfigFor(wf, nodeID, in.Name); ok {
			wire, err := json.Marshal(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("input %q: config: %w", in.Name, err)
			}
			rt, err := param.ToRuntime(in, wire, fetch)
			if err != nil {
				return nil, nil, fmt.Errorf("input %q: %w", in.Name, err)
			}
			runtimeInputs[in.Name] = rt
			continue
		}

		if in.Required {
			return nil, nil, fmt.Errorf("input %q: no source", in.Name)
		}
	}

	return runtimeInputs, repeatedInputs, nil
}

func upstreamOutput(exec *workflow.Execution, fromNode, fromOutput string) (param.Wire, error) {
	ne, ok := exec.NodeExecutions[fromNode]
	if !ok || ne.Status != workflow.NodeStatusCompleted {
		return nil, fmt.Errorf("upstream node %q has not completed", fromNode)
	}
	wire, ok := ne.Outputs[fromOutput]
	if !ok {
		return nil, fmt.Errorf("upstream node %q produced no output %q", fromNode, fromOutput)
	}
	return wire, nil
}

func nodeConfigFor(wf *workflow.Workflow, nodeID, inputName string) (any, bool) {
	spec, ok := wf.NodeByID(nodeID)
	if !ok {
		return nil, false
	}
	v, ok := spec.Config[inputName]
	return v, ok
}
