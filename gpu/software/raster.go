package software

import (
	"encoding/binary"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/x448/float16"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/bake/gpu"
)

// minBandRows is the smallest row band rasterized on its own goroutine.
const minBandRows = 16

// clear fills the target with its clear color.
func (t *renderTarget) clear() {
	c := t.desc.ClearColor
	var texel [8]byte
	t.encode(texel[:t.bpp], [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)})
	for o := 0; o < len(t.pixels); o += t.bpp {
		copy(t.pixels[o:o+t.bpp], texel[:t.bpp])
	}
}

// encode writes one color into dst using the target's storage format.
// Alpha is always stored linearly.
func (t *renderTarget) encode(dst []byte, c [4]float32) {
	switch t.desc.Format {
	case gputypes.TextureFormatRGBA16Float:
		for i, v := range c {
			binary.LittleEndian.PutUint16(dst[i*2:], float16.Fromfloat32(v).Bits())
		}
	case gputypes.TextureFormatBGRA8Unorm:
		dst[0] = t.unorm(c[2])
		dst[1] = t.unorm(c[1])
		dst[2] = t.unorm(c[0])
		dst[3] = toUnorm8(c[3])
	case gputypes.TextureFormatRGBA8Unorm:
		dst[0] = t.unorm(c[0])
		dst[1] = t.unorm(c[1])
		dst[2] = t.unorm(c[2])
		dst[3] = toUnorm8(c[3])
	}
}

func (t *renderTarget) unorm(v float32) uint8 {
	if t.desc.LinearGamma {
		return toUnorm8(v)
	}
	return toUnorm8(linearToSRGB(v))
}

func toUnorm8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// linearToSRGB applies the sRGB transfer function.
func linearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math32.Pow(v, 1/2.4) - 0.055
}

// triangle is a screen space triangle with positive signed area.
type triangle struct {
	v    [3]*gpu.Vertex
	area float32

	minX, maxX, minY, maxY int
}

// edge is the signed area of (a, b, p). Positive when p lies on the
// interior side of a->b for triangles with positive area.
func edge(a, b *gpu.Vertex, px, py float32) float32 {
	return (b.Position[0]-a.Position[0])*(py-a.Position[1]) - (b.Position[1]-a.Position[1])*(px-a.Position[0])
}

// isTopLeft reports whether a->b is a top or left edge. Pixel centers that
// lie exactly on such an edge belong to the triangle.
func isTopLeft(a, b *gpu.Vertex) bool {
	dx := b.Position[0] - a.Position[0]
	dy := b.Position[1] - a.Position[1]
	return dy < 0 || (dy == 0 && dx > 0)
}

func inside(w float32, topLeft bool) bool {
	return w > 0 || (w == 0 && topLeft)
}

// setupTriangles orders every triangle with positive area and computes its
// pixel bounds. Degenerate and fully off-target triangles are dropped.
func setupTriangles(g *gpu.Geometry, width, height int) []triangle {
	tris := make([]triangle, 0, g.TriangleCount())
	for i := 0; i+2 < len(g.Indices); i += 3 {
		i0, i1, i2 := g.Indices[i], g.Indices[i+1], g.Indices[i+2]
		if int(max(i0, i1, i2)) >= len(g.Vertices) {
			continue
		}
		v0, v1, v2 := &g.Vertices[i0], &g.Vertices[i1], &g.Vertices[i2]
		area := edge(v0, v1, v2.Position[0], v2.Position[1])
		if area == 0 {
			continue
		}
		if area < 0 {
			v1, v2 = v2, v1
			area = -area
		}

		xs := [3]float32{v0.Position[0], v1.Position[0], v2.Position[0]}
		ys := [3]float32{v0.Position[1], v1.Position[1], v2.Position[1]}
		// Pixel x is sampled at x+0.5.
		t := triangle{
			v:    [3]*gpu.Vertex{v0, v1, v2},
			area: area,
			minX: max(int(math32.Floor(min(xs[0], xs[1], xs[2])-0.5)), 0),
			maxX: min(int(math32.Ceil(max(xs[0], xs[1], xs[2])-0.5)), width-1),
			minY: max(int(math32.Floor(min(ys[0], ys[1], ys[2])-0.5)), 0),
			maxY: min(int(math32.Ceil(max(ys[0], ys[1], ys[2])-0.5)), height-1),
		}
		if t.minX > t.maxX || t.minY > t.maxY {
			continue
		}
		tris = append(tris, t)
	}
	return tris
}

// rasterize draws g into t. Rows are split into bands shaded concurrently;
// within a band triangles are drawn in index order, so the result does not
// depend on scheduling.
func rasterize(t *renderTarget, g *gpu.Geometry, shade gpu.FragmentFunc) {
	width, height := t.desc.Width, t.desc.Height
	tris := setupTriangles(g, width, height)
	if len(tris) == 0 {
		return
	}

	bands := max(min(runtime.GOMAXPROCS(0), height/minBandRows), 1)
	rowsPer := (height + bands - 1) / bands

	var eg errgroup.Group
	for y0 := 0; y0 < height; y0 += rowsPer {
		y1 := min(y0+rowsPer, height)
		eg.Go(func() error {
			var f gpu.Fragment
			for i := range tris {
				drawTriangle(t, &tris[i], y0, y1, shade, &f)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

func drawTriangle(t *renderTarget, tri *triangle, y0, y1 int, shade gpu.FragmentFunc, f *gpu.Fragment) {
	v0, v1, v2 := tri.v[0], tri.v[1], tri.v[2]
	tl0 := isTopLeft(v1, v2)
	tl1 := isTopLeft(v2, v0)
	tl2 := isTopLeft(v0, v1)
	inv := 1 / tri.area

	rowBytes := t.desc.Width * t.bpp
	for y := max(tri.minY, y0); y <= min(tri.maxY, y1-1); y++ {
		py := float32(y) + 0.5
		for x := tri.minX; x <= tri.maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(v1, v2, px, py)
			w1 := edge(v2, v0, px, py)
			w2 := edge(v0, v1, px, py)
			if !inside(w0, tl0) || !inside(w1, tl1) || !inside(w2, tl2) {
				continue
			}
			interpolate(f, tri, w0*inv, w1*inv, w2*inv)
			f.X, f.Y = x, y
			c := shade(f)
			o := y*rowBytes + x*t.bpp
			t.encode(t.pixels[o:o+t.bpp], c)
		}
	}
}

// interpolate fills f with the barycentric blend of the triangle's vertex
// attributes. Positions carry no depth, so interpolation is affine.
func interpolate(f *gpu.Fragment, tri *triangle, b0, b1, b2 float32) {
	v0, v1, v2 := tri.v[0], tri.v[1], tri.v[2]
	lerp3 := func(a, b, c [3]float32) [3]float32 {
		return [3]float32{
			a[0]*b0 + b[0]*b1 + c[0]*b2,
			a[1]*b0 + b[1]*b1 + c[1]*b2,
			a[2]*b0 + b[2]*b1 + c[2]*b2,
		}
	}
	f.TangentX = lerp3(v0.TangentX, v1.TangentX, v2.TangentX)
	f.TangentY = lerp3(v0.TangentY, v1.TangentY, v2.TangentY)
	f.TangentZ = lerp3(v0.TangentZ, v1.TangentZ, v2.TangentZ)
	for i := range f.Color {
		f.Color[i] = v0.Color[i]*b0 + v1.Color[i]*b1 + v2.Color[i]*b2
	}
	for i := range f.TexCoords {
		for j := range 2 {
			f.TexCoords[i][j] = v0.TexCoords[i][j]*b0 + v1.TexCoords[i][j]*b1 + v2.TexCoords[i][j]*b2
		}
	}
}
