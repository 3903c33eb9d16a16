package builtinnodes

import (
	"context"
	"fmt"

	"github.com/lyzr/flowengine/internal/node"
	"github.com/lyzr/flowengine/internal/param"
	"github.com/lyzr/flowengine/internal/registry"
)

// Passthrough copies its "value" input (any kind) straight to its "value"
// output, used to build chains in test workflows without transforming
// anything.
type Passthrough struct{}

func (Passthrough) Execute(ctx context.Context, nc *node.Context) (*node.Result, error) {
	v, ok := nc.Input("value")
	if !ok {
		return nil, fmt.Errorf("input %q missing", "value")
	}
	return node.Success(map[string]param.Runtime{"value": v}), nil
}

// PassthroughDescriptor describes the Passthrough node type.
func PassthroughDescriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:          "builtin.passthrough",
		DisplayName: "Passthrough",
		Description: "Forwards its input unchanged",
		Inputs:      []param.Declaration{{Name: "value", Kind: param.KindAny, Required: true}},
		Outputs:     []param.Declaration{{Name: "value", Kind: param.KindAny, Required: true}},
		ComputeCost: 1,
	}
}

// Fail always fails, wrapping its error as a resource error when its
// "resource" config flag is set, for exercising the executor's retry path
// and the scheduler's skip-propagation path in tests.
type Fail struct{}

func (Fail) Execute(ctx context.Context, nc *node.Context) (*node.Result, error) {
	err := fmt.Errorf("builtin.fail: always fails")
	if asBool(nc.Config["resource"]) {
		return nil, node.AsResourceError(err)
	}
	return nil, err
}

// FailDescriptor describes the always-failing Fail node type.
func FailDescriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:          "builtin.fail",
		DisplayName: "Fail",
		Description: "Always fails; used to exercise error propagation",
		Inputs:      nil,
		Outputs:     []param.Declaration{numberDecl("unused", false)},
		ComputeCost: 1,
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// Register adds every builtin node type to reg.
func Register(reg *registry.Registry) {
	reg.Register(AddDescriptor(), func() node.Node { return Add{} })
	reg.Register(SubtractDescriptor(), func() node.Node { return Subtract{} })
	reg.Register(MultiplyDescriptor(), func() node.Node { return Multiply{} })
	reg.Register(SumDescriptor(), func() node.Node { return Sum{} })
	reg.Register(PassthroughDescriptor(), func() node.Node { return Passthrough{} })
	reg.Register(FailDescriptor(), func() node.Node { return Fail{} })
	reg.Register(TextLengthDescriptor(), func() node.Node { return TextLength{} })
	reg.Register(EmitImageDescriptor(), func() node.Node { return EmitImage{} })
}
