package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/flowengine/internal/node"
	"github.com/lyzr/flowengine/internal/param"
	"github.com/lyzr/flowengine/internal/registry"
)

type stubNode struct{}

func (stubNode) Execute(ctx context.Context, nc *node.Context) (*node.Result, error) {
	return node.Success(nil), nil
}

func stubDescriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:      "stub.echo",
		Inputs:  []param.Declaration{{Name: "in", Kind: param.KindString, Required: true}},
		Outputs: []param.Declaration{{Name: "out", Kind: param.KindString, Required: true}},
	}
}

func TestRegisterAndDescriptorRoundTrip(t *testing.T) {
	reg := registry.New()
	reg.Register(stubDescriptor(), func() node.Node { return stubNode{} })

	d, ok := reg.Descriptor("stub.echo")
	require.True(t, ok)
	assert.Equal(t, "stub.echo", d.ID)
}

func TestDescriptorUnknownIDReturnsFalse(t *testing.T) {
	reg := registry.New()
	_, ok := reg.Descriptor("nope")
	assert.False(t, ok)
}

func TestNewNodeProducesFreshInstanceEachCall(t *testing.T) {
	reg := registry.New()
	// A non-zero-size instance: pointers to distinct zero-size values may
	// share one address, which would make NotSame fail for fresh instances.
	reg.Register(stubDescriptor(), func() node.Node {
		return &struct {
			stubNode
			id int
		}{}
	})

	n1, err := reg.NewNode("stub.echo")
	require.NoError(t, err)
	n2, err := reg.NewNode("stub.echo")
	require.NoError(t, err)
	assert.NotSame(t, n1, n2, "each NewNode call must return a distinct instance")
}

func TestNewNodeUnknownIDReturnsError(t *testing.T) {
	reg := registry.New()
	_, err := reg.NewNode("nope")
	assert.Error(t, err)
}

func TestRegisterOverwritesExistingID(t *testing.T) {
	reg := registry.New()
	reg.Register(stubDescriptor(), func() node.Node { return stubNode{} })

	replaced := stubDescriptor()
	replaced.DisplayName = "replaced"
	reg.Register(replaced, func() node.Node { return stubNode{} })

	d, ok := reg.Descriptor("stub.echo")
	require.True(t, ok)
	assert.Equal(t, "replaced", d.DisplayName)
}

func TestInputByNameAndOutputByName(t *testing.T) {
	d := stubDescriptor()

	in, ok := d.InputByName("in")
	require.True(t, ok)
	assert.Equal(t, param.KindString, in.Kind)

	_, ok = d.InputByName("missing")
	assert.False(t, ok)

	out, ok := d.OutputByName("out")
	require.True(t, ok)
	assert.Equal(t, param.KindString, out.Kind)
}

func TestAllReturnsEveryRegisteredDescriptor(t *testing.T) {
	reg := registry.New()
	reg.Register(stubDescriptor(), func() node.Node { return stubNode{} })
	second := stubDescriptor()
	second.ID = "stub.echo2"
	reg.Register(second, func() node.Node { return stubNode{} })

	all := reg.All()
	assert.Len(t, all, 2)
}
