package gpu

import (
	"github.com/gogpu/gputypes"
)

// Entry points of bake shader modules.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

// MaxTexCoords is the number of texture coordinate slots carried per vertex.
const MaxTexCoords = 8

// MaxUVChannels is the number of mesh UV channels copied into a vertex.
// The remaining slots carry the surface position.
const MaxUVChannels = 6

// Texture coordinate slots that carry the 3D surface position: slot
// PositionXYSlot holds (x, y) and slot PositionZSlot holds (z, 0).
const (
	PositionXYSlot = 6
	PositionZSlot  = 7
)

// Vertex is one vertex of bake geometry. Position is in render target
// pixel space with y pointing down.
type Vertex struct {
	Position  [3]float32
	TangentX  [3]float32
	TangentY  [3]float32
	TangentZ  [3]float32
	Color     [4]float32
	TexCoords [MaxTexCoords][2]float32
}

// Fragment holds the interpolated vertex attributes at one pixel.
type Fragment struct {
	X, Y      int
	TangentX  [3]float32
	TangentY  [3]float32
	TangentZ  [3]float32
	Color     [4]float32
	TexCoords [MaxTexCoords][2]float32
}

// WorldPosition returns the surface position packed into the spare texture
// coordinate slots.
func (f *Fragment) WorldPosition() [3]float32 {
	return [3]float32{
		f.TexCoords[PositionXYSlot][0],
		f.TexCoords[PositionXYSlot][1],
		f.TexCoords[PositionZSlot][0],
	}
}

// Geometry is an indexed triangle list.
type Geometry struct {
	Vertices []Vertex
	Indices  []uint32
}

// TriangleCount returns the number of indexed triangles.
func (g *Geometry) TriangleCount() int {
	if g == nil {
		return 0
	}
	return len(g.Indices) / 3
}

// Vertex attribute locations shared by the shader generator and GPU
// backends.
const (
	LocationPosition = 0
	LocationTangentX = 1
	LocationTangentY = 2
	LocationTangentZ = 3
	LocationColor    = 4
	LocationTexCoord = 5
)

// VertexStride is the packed size of a Vertex in bytes.
const VertexStride = (3*4 + 4 + MaxTexCoords*2) * 4

// VertexAttributes returns the packed vertex layout matching VertexStride.
func VertexAttributes() []gputypes.VertexAttribute {
	return []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: LocationPosition},
		{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: LocationTangentX},
		{Format: gputypes.VertexFormatFloat32x3, Offset: 24, ShaderLocation: LocationTangentY},
		{Format: gputypes.VertexFormatFloat32x3, Offset: 36, ShaderLocation: LocationTangentZ},
		{Format: gputypes.VertexFormatFloat32x4, Offset: 48, ShaderLocation: LocationColor},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 64, ShaderLocation: LocationTexCoord + 0},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 72, ShaderLocation: LocationTexCoord + 1},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 80, ShaderLocation: LocationTexCoord + 2},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 88, ShaderLocation: LocationTexCoord + 3},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 96, ShaderLocation: LocationTexCoord + 4},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 104, ShaderLocation: LocationTexCoord + 5},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 112, ShaderLocation: LocationTexCoord + 6},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 120, ShaderLocation: LocationTexCoord + 7},
	}
}
