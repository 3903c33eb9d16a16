package builtinnodes

import (
	"context"
	"fmt"

	"github.com/lyzr/flowengine/internal/node"
	"github.com/lyzr/flowengine/internal/param"
	"github.com/lyzr/flowengine/internal/registry"
)

// TextLength reports the length of its "text" string input, giving the
// test fixtures a string-kind declaration to exercise assignability
// checks and mismatches against.
type TextLength struct{}

func (TextLength) Execute(ctx context.Context, nc *node.Context) (*node.Result, error) {
	v, ok := nc.Input("text")
	if !ok {
		return nil, fmt.Errorf("input %q missing", "text")
	}
	s, ok := v.Scalar.(string)
	if !ok {
		return nil, fmt.Errorf("input %q is not a string", "text")
	}
	return node.Success(map[string]param.Runtime{
		"length": {Kind: param.KindNumber, Scalar: float64(len(s))},
	}), nil
}

// TextLengthDescriptor describes the TextLength node type.
func TextLengthDescriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:          "builtin.text_length",
		DisplayName: "Text Length",
		Description: "Reports the length of a string input",
		Inputs:      []param.Declaration{{Name: "text", Kind: param.KindString, Required: true}},
		Outputs:     []param.Declaration{numberDecl("length", true)},
		ComputeCost: 1,
	}
}
