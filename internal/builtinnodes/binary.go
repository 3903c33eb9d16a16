package builtinnodes

import (
	"context"

	"github.com/lyzr/flowengine/internal/node"
	"github.com/lyzr/flowengine/internal/param"
	"github.com/lyzr/flowengine/internal/registry"
)

// EmitImage produces a fixed image payload from its static config, giving
// test fixtures a binary-kind producer to exercise the object-store
// round-trip without a real image-generating node.
type EmitImage struct{}

func (EmitImage) Execute(ctx context.Context, nc *node.Context) (*node.Result, error) {
	data, _ := nc.Config["bytes"].(string)
	mimeType, _ := nc.Config["mimeType"].(string)
	if mimeType == "" {
		mimeType = "image/png"
	}
	return node.Success(map[string]param.Runtime{
		"image": {Kind: param.KindImage, Binary: &param.BinaryData{Data: []byte(data), MimeType: mimeType}},
	}), nil
}

// EmitImageDescriptor describes the EmitImage node type.
func EmitImageDescriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:          "builtin.emit_image",
		DisplayName: "Emit Image",
		Description: "Produces a fixed image payload from static config, for binary round-trip tests",
		Outputs:     []param.Declaration{{Name: "image", Kind: param.KindImage, Required: true}},
		ComputeCost: 1,
	}
}
