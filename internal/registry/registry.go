// Package registry is the catalog of node types available to a workflow:
// each entry's descriptor plus a factory that produces a fresh node.Node
// instance per invocation. This generalizes the teacher's string-typed
// node dispatch into a plain factory map, since nothing here needs the
// teacher's branch/loop special-casing.
package registry

import (
	"fmt"
	"sync"

	"github.com/lyzr/flowengine/internal/node"
	"github.com/lyzr/flowengine/internal/param"
)

// Descriptor is the static, introspectable description of a node type.
type Descriptor struct {
	ID           string              `json:"id"`
	DisplayName  string              `json:"displayName"`
	Description  string              `json:"description"`
	Tags         []string            `json:"tags,omitempty"`
	Inputs       []param.Declaration `json:"inputs"`
	Outputs      []param.Declaration `json:"outputs"`
	ComputeCost  int64               `json:"computeCost,omitempty"`
	Inlinable    bool                `json:"inlinable,omitempty"`
	AsTool       bool                `json:"asTool,omitempty"`
	Compatibility []string           `json:"compatibility,omitempty"`
}

// Factory produces a fresh node.Node instance for one invocation.
type Factory func() node.Node

type entry struct {
	descriptor Descriptor
	factory    Factory
}

// Registry is a thread-safe catalog of node types keyed by descriptor ID.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a node type to the catalog. It overwrites any existing
// entry with the same descriptor ID.
func (r *Registry) Register(d Descriptor, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[d.ID] = entry{descriptor: d, factory: f}
}

// Descriptor returns the descriptor for a node type, or false if unknown.
func (r *Registry) Descriptor(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.descriptor, ok
}

// NewNode instantiates a fresh node.Node for the given node type.
func (r *Registry) NewNode(id string) (node.Node, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown node type %q", id)
	}
	return e.factory(), nil
}

// InputByName returns a node type's declared input by name.
func (d Descriptor) InputByName(name string) (param.Declaration, bool) {
	for _, in := range d.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return param.Declaration{}, false
}

// OutputByName returns a node type's declared output by name.
func (d Descriptor) OutputByName(name string) (param.Declaration, bool) {
	for _, out := range d.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return param.Declaration{}, false
}

// All returns every registered descriptor, for introspection endpoints.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.descriptor)
	}
	return out
}
