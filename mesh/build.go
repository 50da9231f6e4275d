package mesh

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/bake/gpu"
)

// Size is a render target extent in pixels.
type Size struct {
	Width  int
	Height int
}

// IsEmpty reports whether either axis is non-positive.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// quadIndices is the triangle list of the fallback quad.
var quadIndices = []uint32{0, 2, 1, 2, 3, 1}

// Build creates the geometry of src for a target of the given size.
//
// Without a mesh the result is a quad covering the target. Otherwise each
// triangle of a selected section is placed at its UV coordinates and emitted
// twice, the second time with reversed winding, so it rasterizes
// regardless of orientation.
func Build(src *Source, size Size) (*gpu.Geometry, error) {
	if src == nil || src.Mesh == nil {
		box := UnitBox
		if src != nil && !src.TexCoordBox.IsZero() {
			box = src.TexCoordBox
		}
		return buildQuad(box, size), nil
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	return buildMesh(src, size), nil
}

func buildQuad(box Box, size Size) *gpu.Geometry {
	sizeU := box.Max[0] - box.Min[0]
	sizeV := box.Max[1] - box.Min[1]

	g := &gpu.Geometry{
		Vertices: make([]gpu.Vertex, 4),
		Indices:  append([]uint32(nil), quadIndices...),
	}
	for i := range g.Vertices {
		x := float32(i & 1)
		y := float32((i >> 1) & 1)
		v := &g.Vertices[i]
		v.Position = [3]float32{float32(size.Width) * x, float32(size.Height) * y, 0}
		v.TangentX = [3]float32{1, 0, 0}
		v.TangentY = [3]float32{0, 1, 0}
		v.TangentZ = [3]float32{0, 0, 1}
		v.Color = [4]float32{1, 1, 1, 1}
		for t := range v.TexCoords {
			v.TexCoords[t] = [2]float32{box.Min[0] + sizeU*x, box.Min[1] + sizeV*y}
		}
	}
	return g
}

func buildMesh(src *Source, size Size) *gpu.Geometry {
	m := src.Mesh
	scaleX, scaleY := float32(size.Width), float32(size.Height)
	channels := min(m.UVChannels(), gpu.MaxUVChannels)

	var sections map[int]struct{}
	if len(src.Sections) > 0 {
		sections = make(map[int]struct{}, len(src.Sections))
		for _, s := range src.Sections {
			sections[s] = struct{}{}
		}
	}

	g := &gpu.Geometry{
		Vertices: make([]gpu.Vertex, 0, len(m.Triangles)*3),
		Indices:  make([]uint32, 0, len(m.Triangles)*6),
	}

	for face, tri := range m.Triangles {
		if sections != nil {
			if _, ok := sections[tri.Section]; !ok {
				continue
			}
		}

		base := uint32(len(g.Vertices))
		for i := range 3 {
			inst := &m.Instances[tri.Instances[i]]

			var uv [2]float32
			if len(src.CustomTexCoords) > 0 {
				// Mirrored overrides are stored in reversed corner order.
				corner := i
				if src.Mirrored {
					corner = 2 - i
				}
				uv = src.CustomTexCoords[face*3+corner]
			} else {
				uv = channelUV(inst, src.TexCoordIndex)
			}

			v := gpu.Vertex{
				Position: [3]float32{uv[0] * scaleX, uv[1] * scaleY, 0},
				TangentX: inst.Tangent,
				TangentZ: inst.Normal,
				Color:    inst.Color,
			}
			v.TangentY = scale3(normalize3(cross3(inst.Normal, inst.Tangent)), inst.BinormalSign)

			for t := range channels {
				v.TexCoords[t] = channelUV(inst, t)
			}
			for t := channels; t < gpu.MaxUVChannels; t++ {
				v.TexCoords[t] = v.TexCoords[max(channels-1, 0)]
			}

			p := m.Positions[inst.Vertex]
			v.TexCoords[gpu.PositionXYSlot] = [2]float32{p[0], p[1]}
			v.TexCoords[gpu.PositionZSlot] = [2]float32{p[2], 0}

			g.Vertices = append(g.Vertices, v)
		}
		g.Indices = append(g.Indices,
			base, base+1, base+2,
			base, base+2, base+1,
		)
	}
	return g
}

func channelUV(inst *Instance, channel int) [2]float32 {
	if channel < 0 || channel >= len(inst.UVs) {
		return [2]float32{}
	}
	return inst.UVs[channel]
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// normalize3 returns v scaled to unit length, or zero for degenerate input.
func normalize3(v [3]float32) [3]float32 {
	l := math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l < 1e-8 {
		return [3]float32{}
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

func scale3(v [3]float32, s float32) [3]float32 {
	return [3]float32{v[0] * s, v[1] * s, v[2] * s}
}
