// Package builtinnodes supplies the small set of node implementations
// (add/subtract/multiply/passthrough/fan-in-sum) needed to exercise and
// test the scheduler/executor pair. spec.md explicitly puts the real
// >200-node catalog out of scope for the core; these exist in-tree only to
// drive the testable properties and end-to-end scenarios against real
// node.Node implementations instead of mocks.
package builtinnodes

import (
	"context"
	"fmt"

	"github.com/lyzr/flowengine/internal/node"
	"github.com/lyzr/flowengine/internal/param"
	"github.com/lyzr/flowengine/internal/registry"
)

func numberDecl(name string, required bool) param.Declaration {
	return param.Declaration{Name: name, Kind: param.KindNumber, Required: required}
}

// Add sums its "a" and "b" number inputs.
type Add struct{}

func (Add) Execute(ctx context.Context, nc *node.Context) (*node.Result, error) {
	a, err := requireNumber(nc, "a")
	if err != nil {
		return nil, err
	}
	b, err := requireNumber(nc, "b")
	if err != nil {
		return nil, err
	}
	return node.Success(map[string]param.Runtime{
		"sum": {Kind: param.KindNumber, Scalar: a + b},
	}), nil
}

// AddDescriptor describes the Add node type.
func AddDescriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:          "builtin.add",
		DisplayName: "Add",
		Description: "Sums two numbers",
		Inputs:      []param.Declaration{numberDecl("a", true), numberDecl("b", true)},
		Outputs:     []param.Declaration{numberDecl("sum", true)},
		ComputeCost: 1,
	}
}

// Subtract computes "a" - "b".
type Subtract struct{}

func (Subtract) Execute(ctx context.Context, nc *node.Context) (*node.Result, error) {
	a, err := requireNumber(nc, "a")
	if err != nil {
		return nil, err
	}
	b, err := requireNumber(nc, "b")
	if err != nil {
		return nil, err
	}
	return node.Success(map[string]param.Runtime{
		"difference": {Kind: param.KindNumber, Scalar: a - b},
	}), nil
}

// SubtractDescriptor describes the Subtract node type.
func SubtractDescriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:          "builtin.subtract",
		DisplayName: "Subtract",
		Description: "Subtracts b from a",
		Inputs:      []param.Declaration{numberDecl("a", true), numberDecl("b", true)},
		Outputs:     []param.Declaration{numberDecl("difference", true)},
		ComputeCost: 1,
	}
}

// Multiply computes "a" * "b".
type Multiply struct{}

func (Multiply) Execute(ctx context.Context, nc *node.Context) (*node.Result, error) {
	a, err := requireNumber(nc, "a")
	if err != nil {
		return nil, err
	}
	b, err := requireNumber(nc, "b")
	if err != nil {
		return nil, err
	}
	return node.Success(map[string]param.Runtime{
		"product": {Kind: param.KindNumber, Scalar: a * b},
	}), nil
}

// MultiplyDescriptor describes the Multiply node type.
func MultiplyDescriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:          "builtin.multiply",
		DisplayName: "Multiply",
		Description: "Multiplies a by b",
		Inputs:      []param.Declaration{numberDecl("a", true), numberDecl("b", true)},
		Outputs:     []param.Declaration{numberDecl("product", true)},
		ComputeCost: 1,
	}
}

// Sum fans in a repeated "values" input and emits their total, exercising
// the ordered repeated-input materialization path.
type Sum struct{}

func (Sum) Execute(ctx context.Context, nc *node.Context) (*node.Result, error) {
	values := nc.RepeatedInput("values")
	var total float64
	for _, v := range values {
		n, ok := v.Scalar.(float64)
		if !ok {
			return nil, fmt.Errorf("sum: non-numeric value in repeated input")
		}
		total += n
	}
	return node.Success(map[string]param.Runtime{
		"sum": {Kind: param.KindNumber, Scalar: total},
	}), nil
}

// SumDescriptor describes the fan-in Sum node type.
func SumDescriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:          "builtin.sum",
		DisplayName: "Sum",
		Description: "Sums a repeated sequence of numbers",
		Inputs:      []param.Declaration{{Name: "values", Kind: param.KindNumber, Required: true, Repeated: true}},
		Outputs:     []param.Declaration{numberDecl("sum", true)},
		ComputeCost: 1,
	}
}

func requireNumber(nc *node.Context, name string) (float64, error) {
	v, ok := nc.Input(name)
	if !ok {
		return 0, fmt.Errorf("input %q missing", name)
	}
	n, ok := v.Scalar.(float64)
	if !ok {
		return 0, fmt.Errorf("input %q is not a number", name)
	}
	return n, nil
}
