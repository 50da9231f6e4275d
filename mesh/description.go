// Package mesh turns UV mapped surfaces into bake geometry.
//
// A bake renders in UV space: each triangle is placed at its texture
// coordinates scaled to the render target, so every covered pixel of the
// target corresponds to one surface point. The surface position, tangent
// frame, vertex color and all UV channels travel along as vertex attributes
// for the material to read.
package mesh

import (
	"errors"
	"fmt"
)

// ErrInvalidMesh is returned when a Description references data it does
// not hold.
var ErrInvalidMesh = errors.New("mesh: invalid description")

// Instance is a triangle corner: a reference to a shared vertex position
// plus the attributes that may differ per corner.
type Instance struct {
	// Vertex indexes Description.Positions.
	Vertex int

	Normal       [3]float32
	Tangent      [3]float32
	BinormalSign float32
	Color        [4]float32

	// UVs holds one coordinate per UV channel.
	UVs [][2]float32
}

// Triangle references three instances and the section it belongs to.
type Triangle struct {
	Instances [3]int
	Section   int
}

// Description is a triangulated surface.
type Description struct {
	Positions [][3]float32
	Instances []Instance
	Triangles []Triangle
}

// VertexCount returns the number of shared vertex positions. A nil
// description has none.
func (d *Description) VertexCount() int {
	if d == nil {
		return 0
	}
	return len(d.Positions)
}

// UVChannels returns the number of UV channels, taken from the first
// instance.
func (d *Description) UVChannels() int {
	if d == nil || len(d.Instances) == 0 {
		return 0
	}
	return len(d.Instances[0].UVs)
}

// Validate checks that every reference is in range.
func (d *Description) Validate() error {
	if d == nil {
		return nil
	}
	for i, inst := range d.Instances {
		if inst.Vertex < 0 || inst.Vertex >= len(d.Positions) {
			return fmt.Errorf("%w: instance %d references vertex %d of %d",
				ErrInvalidMesh, i, inst.Vertex, len(d.Positions))
		}
	}
	for i, tri := range d.Triangles {
		for _, inst := range tri.Instances {
			if inst < 0 || inst >= len(d.Instances) {
				return fmt.Errorf("%w: triangle %d references instance %d of %d",
					ErrInvalidMesh, i, inst, len(d.Instances))
			}
		}
	}
	return nil
}

// Box is an axis aligned rectangle in UV space.
type Box struct {
	Min, Max [2]float32
}

// UnitBox is the [0,1] UV square.
var UnitBox = Box{Max: [2]float32{1, 1}}

// IsZero reports whether b is the zero value.
func (b Box) IsZero() bool {
	return b == Box{}
}

// Source selects the part of a surface to bake and how to map it.
type Source struct {
	// Mesh is the surface. A nil Mesh bakes a full target quad.
	Mesh *Description

	// TexCoordIndex is the UV channel that places triangles on the target.
	TexCoordIndex int

	// CustomTexCoords overrides the placement UV per triangle corner, three
	// entries per triangle of Mesh. It takes priority over TexCoordIndex.
	CustomTexCoords [][2]float32

	// Sections limits the bake to triangles of these sections. Empty means
	// every section.
	Sections []int

	// Mirrored reads CustomTexCoords of each triangle in reversed corner
	// order. Corner attributes and channel UVs are unaffected.
	Mirrored bool

	// TexCoordBox is the UV rectangle the quad spans when Mesh is nil. The
	// zero value means UnitBox.
	TexCoordBox Box

	// LightMap is an auxiliary handle only meaningful to ambient occlusion
	// bakes, sampled through channel LightMapIndex. Devices without
	// precomputed lighting ignore it.
	LightMap      any
	LightMapIndex int

	// VertexColorHash identifies the vertex colors the source was built
	// with. It is logged with the job.
	VertexColorHash uint32
}

// VertexCount returns the vertex count of the source's mesh.
func (s *Source) VertexCount() int {
	if s == nil {
		return 0
	}
	return s.Mesh.VertexCount()
}

// Validate checks the mesh and the custom coordinate count.
func (s *Source) Validate() error {
	if s == nil || s.Mesh == nil {
		return nil
	}
	if err := s.Mesh.Validate(); err != nil {
		return err
	}
	if n := len(s.CustomTexCoords); n > 0 && n != len(s.Mesh.Triangles)*3 {
		return fmt.Errorf("%w: %d custom texture coordinates for %d triangles",
			ErrInvalidMesh, n, len(s.Mesh.Triangles))
	}
	return nil
}
