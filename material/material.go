// Package material describes the materials a baker renders: the channels
// that can be baked, blend and shading models, and the small expression
// graph that feeds each channel.
//
// A Material is a collaborator interface. Graph is a ready-made
// implementation that supports instances: a Graph created with NewInstance
// overrides some inputs and inherits the rest from its parent.
package material

import (
	"sync"
)

// ID identifies a material. Instances have their own ID.
type ID string

// Material is the source of a bake.
type Material interface {
	ID() ID
	Name() string

	// Parent returns the material this one is an instance of, or nil.
	Parent() Material

	// TangentSpaceNormal reports whether the Normal input is authored in
	// tangent space. World space normals are transformed before baking.
	TangentSpaceNormal() bool

	ShadingModel() ShadingModel

	// Input returns the expression connected to p, or nil when p is
	// unconnected.
	Input(p Property) Expr
}

// maxChainDepth bounds parent walks so a malformed chain cannot loop.
const maxChainDepth = 64

// Chain returns the IDs of m and all of its parents, nearest first.
func Chain(m Material) []ID {
	var ids []ID
	for depth := 0; m != nil && depth < maxChainDepth; depth++ {
		ids = append(ids, m.ID())
		m = m.Parent()
	}
	return ids
}

// DependsOn reports whether m or any material in its parent chain has id.
func DependsOn(m Material, id ID) bool {
	for _, chainID := range Chain(m) {
		if chainID == id {
			return true
		}
	}
	return false
}

// Graph is an in-memory Material.
type Graph struct {
	id     ID
	name   string
	parent Material

	mu                 sync.RWMutex
	tangentSpaceNormal bool
	shadingModel       ShadingModel
	inputs             map[PropertyKey]Expr
}

// New creates a base material with tangent space normals and the default
// lit shading model.
func New(id ID, name string) *Graph {
	return &Graph{
		id:                 id,
		name:               name,
		tangentSpaceNormal: true,
		shadingModel:       ShadingDefaultLit,
		inputs:             make(map[PropertyKey]Expr),
	}
}

// NewInstance creates a material that inherits every input of parent that it
// does not override.
func NewInstance(id ID, name string, parent Material) *Graph {
	g := New(id, name)
	g.parent = parent
	if parent != nil {
		g.tangentSpaceNormal = parent.TangentSpaceNormal()
		g.shadingModel = parent.ShadingModel()
	}
	return g
}

// ID implements Material.
func (g *Graph) ID() ID { return g.id }

// Name implements Material.
func (g *Graph) Name() string { return g.name }

// Parent implements Material.
func (g *Graph) Parent() Material { return g.parent }

// TangentSpaceNormal implements Material.
func (g *Graph) TangentSpaceNormal() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tangentSpaceNormal
}

// ShadingModel implements Material.
func (g *Graph) ShadingModel() ShadingModel {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.shadingModel
}

// Input implements Material.
func (g *Graph) Input(p Property) Expr {
	g.mu.RLock()
	e, ok := g.inputs[p.Key()]
	g.mu.RUnlock()
	if ok {
		return e
	}
	if g.parent != nil {
		return g.parent.Input(p)
	}
	return nil
}

// SetInput connects e to p. A nil e disconnects p.
func (g *Graph) SetInput(p Property, e Expr) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e == nil {
		delete(g.inputs, p.Key())
	} else {
		g.inputs[p.Key()] = e
	}
	return g
}

// SetTangentSpaceNormal sets the space the Normal input is authored in.
func (g *Graph) SetTangentSpaceNormal(v bool) *Graph {
	g.mu.Lock()
	g.tangentSpaceNormal = v
	g.mu.Unlock()
	return g
}

// SetShadingModel sets the shading model.
func (g *Graph) SetShadingModel(m ShadingModel) *Graph {
	g.mu.Lock()
	g.shadingModel = m
	g.mu.Unlock()
	return g
}
