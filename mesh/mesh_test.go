package mesh

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/bake/gpu"
)

// twoTriangles returns a square split into two triangles in sections 0
// and 1, with two UV channels.
func twoTriangles() *Description {
	inst := func(v int, u0, u1 [2]float32) Instance {
		return Instance{
			Vertex:       v,
			Normal:       [3]float32{0, 0, 1},
			Tangent:      [3]float32{1, 0, 0},
			BinormalSign: 1,
			Color:        [4]float32{0.5, 0.25, 1, 1},
			UVs:          [][2]float32{u0, u1},
		}
	}
	return &Description{
		Positions: [][3]float32{{0, 0, 0}, {10, 0, 0}, {0, 10, 5}, {10, 10, 5}},
		Instances: []Instance{
			inst(0, [2]float32{0, 0}, [2]float32{0.1, 0.1}),
			inst(1, [2]float32{1, 0}, [2]float32{0.2, 0.1}),
			inst(2, [2]float32{0, 1}, [2]float32{0.1, 0.2}),
			inst(3, [2]float32{1, 1}, [2]float32{0.2, 0.2}),
		},
		Triangles: []Triangle{
			{Instances: [3]int{0, 1, 2}, Section: 0},
			{Instances: [3]int{1, 3, 2}, Section: 1},
		},
	}
}

// =============================================================================
// Quad Tests
// =============================================================================

func TestBuild_QuadWithoutMesh(t *testing.T) {
	g, err := Build(nil, Size{Width: 64, Height: 32})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Vertices) != 4 || g.TriangleCount() != 2 {
		t.Fatalf("got %d vertices and %d triangles, want 4 and 2", len(g.Vertices), g.TriangleCount())
	}
	if !slices.Equal(g.Indices, []uint32{0, 2, 1, 2, 3, 1}) {
		t.Errorf("Indices = %v", g.Indices)
	}

	wantPos := [][3]float32{{0, 0, 0}, {64, 0, 0}, {0, 32, 0}, {64, 32, 0}}
	wantUV := [][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i, v := range g.Vertices {
		if v.Position != wantPos[i] {
			t.Errorf("vertex %d position = %v, want %v", i, v.Position, wantPos[i])
		}
		for c := range gpu.MaxTexCoords {
			if v.TexCoords[c] != wantUV[i] {
				t.Errorf("vertex %d uv%d = %v, want %v", i, c, v.TexCoords[c], wantUV[i])
			}
		}
		if v.Color != [4]float32{1, 1, 1, 1} {
			t.Errorf("vertex %d color = %v, want white", i, v.Color)
		}
		if v.TangentZ != [3]float32{0, 0, 1} {
			t.Errorf("vertex %d normal = %v", i, v.TangentZ)
		}
	}
}

func TestBuild_QuadTexCoordBox(t *testing.T) {
	src := &Source{TexCoordBox: Box{Min: [2]float32{0.5, 0.25}, Max: [2]float32{1, 0.75}}}
	g, err := Build(src, Size{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := g.Vertices[0].TexCoords[0]; got != [2]float32{0.5, 0.25} {
		t.Errorf("min corner uv = %v", got)
	}
	if got := g.Vertices[3].TexCoords[0]; got != [2]float32{1, 0.75} {
		t.Errorf("max corner uv = %v", got)
	}
}

// =============================================================================
// Mesh Tests
// =============================================================================

func TestBuild_MeshEmitsBothWindings(t *testing.T) {
	src := &Source{Mesh: twoTriangles()}
	g, err := Build(src, Size{Width: 100, Height: 50})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Vertices) != 6 {
		t.Fatalf("len(Vertices) = %d, want 6", len(g.Vertices))
	}
	want := []uint32{0, 1, 2, 0, 2, 1, 3, 4, 5, 3, 5, 4}
	if !slices.Equal(g.Indices, want) {
		t.Errorf("Indices = %v, want %v", g.Indices, want)
	}

	// Position comes from UV channel 0 scaled to the target.
	if got := g.Vertices[1].Position; got != [3]float32{100, 0, 0} {
		t.Errorf("vertex 1 position = %v, want (100,0,0)", got)
	}
	if got := g.Vertices[4].Position; got != [3]float32{100, 50, 0} {
		t.Errorf("vertex 4 position = %v, want (100,50,0)", got)
	}
}

func TestBuild_MeshAttributes(t *testing.T) {
	src := &Source{Mesh: twoTriangles()}
	g, err := Build(src, Size{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	v := g.Vertices[2] // instance 2, vertex (0,10,5)

	if v.TexCoords[1] != [2]float32{0.1, 0.2} {
		t.Errorf("uv1 = %v", v.TexCoords[1])
	}
	// Channels past the mesh's count repeat the last one.
	for c := 2; c < gpu.MaxUVChannels; c++ {
		if v.TexCoords[c] != v.TexCoords[1] {
			t.Errorf("uv%d = %v, want copy of uv1 %v", c, v.TexCoords[c], v.TexCoords[1])
		}
	}

	f := gpu.Fragment{TexCoords: v.TexCoords}
	if got := f.WorldPosition(); got != [3]float32{0, 10, 5} {
		t.Errorf("WorldPosition = %v, want (0,10,5)", got)
	}

	if v.TangentX != [3]float32{1, 0, 0} || v.TangentZ != [3]float32{0, 0, 1} {
		t.Errorf("tangent frame X=%v Z=%v", v.TangentX, v.TangentZ)
	}
	// cross((0,0,1), (1,0,0)) = (0,1,0)
	if v.TangentY != [3]float32{0, 1, 0} {
		t.Errorf("TangentY = %v, want (0,1,0)", v.TangentY)
	}
	if v.Color != [4]float32{0.5, 0.25, 1, 1} {
		t.Errorf("Color = %v", v.Color)
	}
}

func TestBuild_BinormalSign(t *testing.T) {
	m := twoTriangles()
	for i := range m.Instances {
		m.Instances[i].BinormalSign = -1
	}
	g, err := Build(&Source{Mesh: m}, Size{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := g.Vertices[0].TangentY; got != [3]float32{0, -1, 0} {
		t.Errorf("TangentY = %v, want (0,-1,0)", got)
	}
}

func TestBuild_SectionFilter(t *testing.T) {
	src := &Source{Mesh: twoTriangles(), Sections: []int{1}}
	g, err := Build(src, Size{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Vertices) != 3 || g.TriangleCount() != 2 {
		t.Fatalf("got %d vertices and %d triangles, want 3 and 2", len(g.Vertices), g.TriangleCount())
	}
	if got := g.Vertices[1].Position; got != [3]float32{8, 8, 0} {
		t.Errorf("first kept corner position = %v, want (8,8,0)", got)
	}

	none := &Source{Mesh: twoTriangles(), Sections: []int{7}}
	g, err = Build(none, Size{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.TriangleCount() != 0 {
		t.Errorf("TriangleCount = %d, want 0", g.TriangleCount())
	}
}

func TestBuild_Mirrored(t *testing.T) {
	tests := []struct {
		name     string
		mirrored bool
		wantPos  [3][3]float32
	}{
		{"forward", false, [3][3]float32{{2, 2, 0}, {3, 2, 0}, {2, 3, 0}}},
		{"mirrored", true, [3][3]float32{{2, 3, 0}, {3, 2, 0}, {2, 2, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &Source{
				Mesh: twoTriangles(),
				CustomTexCoords: [][2]float32{
					{0.5, 0.5}, {0.75, 0.5}, {0.5, 0.75},
					{0, 0}, {0, 0}, {0, 0},
				},
				Mirrored: tt.mirrored,
			}
			g, err := Build(src, Size{Width: 4, Height: 4})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			// Corner attributes keep their order; only the override UV
			// that places them moves.
			wantXY := [3][2]float32{{0, 0}, {10, 0}, {0, 10}}
			for i := range 3 {
				v := g.Vertices[i]
				if v.Position != tt.wantPos[i] {
					t.Errorf("vertex %d position = %v, want %v", i, v.Position, tt.wantPos[i])
				}
				if got := v.TexCoords[gpu.PositionXYSlot]; got != wantXY[i] {
					t.Errorf("vertex %d world XY = %v, want %v", i, got, wantXY[i])
				}
			}
		})
	}
}

func TestBuild_MirroredWithoutOverridesIsUnchanged(t *testing.T) {
	plain, err := Build(&Source{Mesh: twoTriangles()}, Size{Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	mirrored, err := Build(&Source{Mesh: twoTriangles(), Mirrored: true}, Size{Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !slices.Equal(plain.Vertices, mirrored.Vertices) {
		t.Error("Mirrored changed vertices of a mesh without UV overrides")
	}
}

func TestBuild_CustomTexCoords(t *testing.T) {
	src := &Source{
		Mesh: twoTriangles(),
		CustomTexCoords: [][2]float32{
			{0.5, 0.5}, {0.75, 0.5}, {0.5, 0.75},
			{0, 0}, {0, 0}, {0, 0},
		},
		TexCoordIndex: 1,
	}
	g, err := Build(src, Size{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := g.Vertices[1].Position; got != [3]float32{3, 2, 0} {
		t.Errorf("vertex 1 position = %v, want (3,2,0)", got)
	}
}

func TestBuild_TexCoordIndex(t *testing.T) {
	src := &Source{Mesh: twoTriangles(), TexCoordIndex: 1}
	g, err := Build(src, Size{Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := g.Vertices[1].Position; got != [3]float32{2, 1, 0} {
		t.Errorf("vertex 1 position = %v, want (2,1,0)", got)
	}
}

func TestBuild_InvalidMesh(t *testing.T) {
	tests := []struct {
		name string
		src  *Source
	}{
		{"bad vertex", &Source{Mesh: &Description{Instances: []Instance{{Vertex: 3}}}}},
		{"bad instance", &Source{Mesh: &Description{Triangles: []Triangle{{Instances: [3]int{0, 1, 2}}}}}},
		{"custom count", &Source{Mesh: twoTriangles(), CustomTexCoords: make([][2]float32, 4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.src, Size{Width: 4, Height: 4}); !errors.Is(err, ErrInvalidMesh) {
				t.Errorf("err = %v, want ErrInvalidMesh", err)
			}
		})
	}
}

// =============================================================================
// Prepare Tests
// =============================================================================

func TestPrepare_DistinctSizes(t *testing.T) {
	src := &Source{Mesh: twoTriangles()}
	items, err := Prepare(src, []Size{
		{Width: 8, Height: 8},
		{Width: 16, Height: 8},
		{Width: 8, Height: 8},
		{Width: 0, Height: 8},
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if got := items[Size{Width: 16, Height: 8}].Vertices[1].Position; got != [3]float32{16, 0, 0} {
		t.Errorf("16x8 vertex 1 position = %v", got)
	}
	if items.VertexCount() != 12 {
		t.Errorf("VertexCount = %d, want 12", items.VertexCount())
	}
}

func TestSource_VertexCount(t *testing.T) {
	var nilSrc *Source
	if nilSrc.VertexCount() != 0 {
		t.Error("nil source should have no vertices")
	}
	if (&Source{}).VertexCount() != 0 {
		t.Error("quad source should report no mesh vertices")
	}
	if got := (&Source{Mesh: twoTriangles()}).VertexCount(); got != 4 {
		t.Errorf("VertexCount = %d, want 4", got)
	}
}
