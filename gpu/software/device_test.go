package software

import (
	"encoding/binary"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/x448/float16"

	"github.com/gogpu/bake/gpu"
	"github.com/gogpu/bake/mesh"
)

// =============================================================================
// Helpers
// =============================================================================

func newTarget(t *testing.T, d *Device, w, h int, format gputypes.TextureFormat, linear bool) gpu.RenderTarget {
	t.Helper()
	rt, err := d.CreateRenderTarget(gpu.RenderTargetDescriptor{
		Width: w, Height: h, Format: format, LinearGamma: linear, ClearColor: gpu.HoleColor,
	})
	if err != nil {
		t.Fatalf("CreateRenderTarget: %v", err)
	}
	return rt
}

func newProgram(t *testing.T, d *Device, format gputypes.TextureFormat, fn gpu.FragmentFunc) gpu.Program {
	t.Helper()
	p, err := d.CreateProgram(gpu.ProgramDescriptor{Label: "test", Format: format, Fragment: fn})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	return p
}

func quad(t *testing.T, w, h int) *gpu.Geometry {
	t.Helper()
	g, err := mesh.Build(nil, mesh.Size{Width: w, Height: h})
	if err != nil {
		t.Fatalf("mesh.Build: %v", err)
	}
	return g
}

// readback draws, copies and maps, returning the mapping.
func readback(t *testing.T, d *Device, rt gpu.RenderTarget, draw *gpu.DrawCall) gpu.Mapping {
	t.Helper()
	if err := d.SubmitDraw(rt, draw); err != nil {
		t.Fatalf("SubmitDraw: %v", err)
	}
	desc := rt.Descriptor()
	sb, err := d.CreateStagingBuffer(gpu.StagingBufferDescriptor{Width: desc.Width, Height: desc.Height, Format: desc.Format})
	if err != nil {
		t.Fatalf("CreateStagingBuffer: %v", err)
	}
	f, err := d.CopyToReadback(rt, sb)
	if err != nil {
		t.Fatalf("CopyToReadback: %v", err)
	}
	if err := d.WaitFence(f); err != nil {
		t.Fatalf("WaitFence: %v", err)
	}
	m, err := d.MapReadback(sb)
	if err != nil {
		t.Fatalf("MapReadback: %v", err)
	}
	return m
}

// bgra returns the texel at (x, y) of a BGRA8 mapping as r, g, b, a.
func bgra(m gpu.Mapping, x, y int) [4]uint8 {
	o := y*m.BytesPerRow + x*4
	return [4]uint8{m.Data[o+2], m.Data[o+1], m.Data[o], m.Data[o+3]}
}

// =============================================================================
// Rasterization Tests
// =============================================================================

func TestSubmitDraw_QuadCoversEveryPixelOnce(t *testing.T) {
	sizes := [][2]int{{1, 1}, {4, 4}, {7, 3}, {33, 65}}
	for _, s := range sizes {
		d := New()
		w, h := s[0], s[1]
		rt := newTarget(t, d, w, h, gputypes.TextureFormatBGRA8Unorm, true)

		var shaded atomic.Int64
		prog := newProgram(t, d, gputypes.TextureFormatBGRA8Unorm, func(*gpu.Fragment) [4]float32 {
			shaded.Add(1)
			return [4]float32{0, 1, 0, 0}
		})
		m := readback(t, d, rt, &gpu.DrawCall{Program: prog, Geometry: quad(t, w, h)})

		if got := shaded.Load(); got != int64(w*h) {
			t.Errorf("%dx%d: shaded %d fragments, want %d", w, h, got, w*h)
		}
		for y := range h {
			for x := range w {
				if got := bgra(m, x, y); got != [4]uint8{0, 255, 0, 0} {
					t.Fatalf("%dx%d: pixel (%d,%d) = %v, want green with alpha 0", w, h, x, y, got)
				}
			}
		}
	}
}

func TestSubmitDraw_ClearsToHoleColor(t *testing.T) {
	d := New()
	rt := newTarget(t, d, 3, 2, gputypes.TextureFormatBGRA8Unorm, false)
	m := readback(t, d, rt, nil)

	for y := range 2 {
		for x := range 3 {
			if got := bgra(m, x, y); got != [4]uint8{255, 0, 255, 255} {
				t.Fatalf("pixel (%d,%d) = %v, want magenta", x, y, got)
			}
		}
	}
}

func TestSubmitDraw_TriangleWindingIndependent(t *testing.T) {
	d := New()
	const size = 8
	tri := func(indices []uint32) map[[2]int]bool {
		g := &gpu.Geometry{
			Vertices: []gpu.Vertex{
				{Position: [3]float32{0.3, 0.2, 0}},
				{Position: [3]float32{7.6, 1.1, 0}},
				{Position: [3]float32{2.2, 7.9, 0}},
			},
			Indices: indices,
		}
		covered := map[[2]int]bool{}
		rt := newTarget(t, d, size, size, gputypes.TextureFormatBGRA8Unorm, true)
		prog := newProgram(t, d, gputypes.TextureFormatBGRA8Unorm, func(f *gpu.Fragment) [4]float32 {
			covered[[2]int{f.X, f.Y}] = true
			return [4]float32{}
		})
		// One band: the fragment function is not synchronized.
		if err := d.SubmitDraw(rt, &gpu.DrawCall{Program: prog, Geometry: g}); err != nil {
			t.Fatalf("SubmitDraw: %v", err)
		}
		return covered
	}

	cw := tri([]uint32{0, 1, 2})
	ccw := tri([]uint32{0, 2, 1})
	if len(cw) == 0 {
		t.Fatal("triangle covered no pixels")
	}
	if len(cw) != len(ccw) {
		t.Fatalf("coverage differs by winding: %d vs %d pixels", len(cw), len(ccw))
	}
	for p := range cw {
		if !ccw[p] {
			t.Errorf("pixel %v covered only by one winding", p)
		}
	}
}

func TestSubmitDraw_InterpolatesAttributes(t *testing.T) {
	d := New()
	const w, h = 4, 2
	rt := newTarget(t, d, w, h, gputypes.TextureFormatRGBA16Float, true)
	prog := newProgram(t, d, gputypes.TextureFormatRGBA16Float, func(f *gpu.Fragment) [4]float32 {
		uv := f.TexCoords[0]
		return [4]float32{uv[0], uv[1], f.Color[0], 0}
	})
	m := readback(t, d, rt, &gpu.DrawCall{Program: prog, Geometry: quad(t, w, h)})

	for y := range h {
		for x := range w {
			o := y*m.BytesPerRow + x*8
			u := float16.Frombits(binary.LittleEndian.Uint16(m.Data[o:])).Float32()
			v := float16.Frombits(binary.LittleEndian.Uint16(m.Data[o+2:])).Float32()
			c := float16.Frombits(binary.LittleEndian.Uint16(m.Data[o+4:])).Float32()
			wantU := (float32(x) + 0.5) / w
			wantV := (float32(y) + 0.5) / h
			if abs(u-wantU) > 1e-3 || abs(v-wantV) > 1e-3 {
				t.Errorf("uv at (%d,%d) = (%v,%v), want (%v,%v)", x, y, u, v, wantU, wantV)
			}
			if abs(c-1) > 1e-3 {
				t.Errorf("color at (%d,%d) = %v, want 1", x, y, c)
			}
		}
	}
}

func TestSubmitDraw_GammaEncoding(t *testing.T) {
	tests := []struct {
		name   string
		linear bool
		want   uint8
	}{
		{"linear", true, 128},
		{"srgb", false, 188},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			rt := newTarget(t, d, 1, 1, gputypes.TextureFormatBGRA8Unorm, tt.linear)
			prog := newProgram(t, d, gputypes.TextureFormatBGRA8Unorm, func(*gpu.Fragment) [4]float32 {
				return [4]float32{0.5, 0.5, 0.5, 0}
			})
			m := readback(t, d, rt, &gpu.DrawCall{Program: prog, Geometry: quad(t, 1, 1)})
			if got := bgra(m, 0, 0); got[0] != tt.want || got[3] != 0 {
				t.Errorf("pixel = %v, want red %d alpha 0", got, tt.want)
			}
		})
	}
}

func TestSubmitDraw_FormatMismatch(t *testing.T) {
	d := New()
	rt := newTarget(t, d, 2, 2, gputypes.TextureFormatBGRA8Unorm, false)
	prog := newProgram(t, d, gputypes.TextureFormatRGBA16Float, func(*gpu.Fragment) [4]float32 { return [4]float32{} })
	if err := d.SubmitDraw(rt, &gpu.DrawCall{Program: prog, Geometry: quad(t, 2, 2)}); err == nil {
		t.Error("expected an error for a program of another format")
	}
}

// =============================================================================
// Resource Tests
// =============================================================================

func TestCreateRenderTarget_Validation(t *testing.T) {
	d := New(WithMaxTextureDimension(64))
	if d.Limits().MaxTextureDimension != 64 {
		t.Fatalf("MaxTextureDimension = %d, want 64", d.Limits().MaxTextureDimension)
	}

	_, err := d.CreateRenderTarget(gpu.RenderTargetDescriptor{Width: 65, Height: 1, Format: gputypes.TextureFormatBGRA8Unorm})
	if !errors.Is(err, gpu.ErrInvalidSize) {
		t.Errorf("oversize err = %v, want ErrInvalidSize", err)
	}
	_, err = d.CreateRenderTarget(gpu.RenderTargetDescriptor{Width: 4, Height: 4, Format: gputypes.TextureFormatR8Unorm})
	if !errors.Is(err, gpu.ErrUnsupportedFormat) {
		t.Errorf("format err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestStagingBuffer_RowAlignment(t *testing.T) {
	tests := []struct {
		align, width int
		wantPitch    int
	}{
		{256, 4, 256},
		{256, 64, 256},
		{256, 65, 512},
		{1, 5, 20},
	}
	for _, tt := range tests {
		d := New(WithRowAlignment(tt.align))
		rt := newTarget(t, d, tt.width, 2, gputypes.TextureFormatBGRA8Unorm, false)
		m := readback(t, d, rt, nil)
		if m.BytesPerRow != tt.wantPitch {
			t.Errorf("align %d width %d: BytesPerRow = %d, want %d", tt.align, tt.width, m.BytesPerRow, tt.wantPitch)
		}
		if m.Width != tt.width || m.Height != 2 {
			t.Errorf("mapping extent = %dx%d, want %dx2", m.Width, m.Height, tt.width)
		}
	}
}

func TestCopyToReadback_LargerStagingBuffer(t *testing.T) {
	d := New()
	rt := newTarget(t, d, 2, 2, gputypes.TextureFormatBGRA8Unorm, false)
	_ = d.SubmitDraw(rt, nil)

	sb, _ := d.CreateStagingBuffer(gpu.StagingBufferDescriptor{Width: 3, Height: 3, Format: gputypes.TextureFormatBGRA8Unorm})
	if _, err := d.CopyToReadback(rt, sb); err != nil {
		t.Fatalf("CopyToReadback: %v", err)
	}
	m, _ := d.MapReadback(sb)
	if m.Width != 2 || m.Height != 2 {
		t.Errorf("mapping extent = %dx%d, want the 2x2 copy", m.Width, m.Height)
	}

	small, _ := d.CreateStagingBuffer(gpu.StagingBufferDescriptor{Width: 1, Height: 2, Format: gputypes.TextureFormatBGRA8Unorm})
	if _, err := d.CopyToReadback(rt, small); err == nil {
		t.Error("expected an error copying into a smaller buffer")
	}
}

func TestFences_OutstandingCount(t *testing.T) {
	d := New()
	rt := newTarget(t, d, 2, 2, gputypes.TextureFormatBGRA8Unorm, false)
	_ = d.SubmitDraw(rt, nil)

	var bufs []gpu.StagingBuffer
	var last gpu.Fence
	for range 3 {
		sb, _ := d.CreateStagingBuffer(gpu.StagingBufferDescriptor{Width: 2, Height: 2, Format: gputypes.TextureFormatBGRA8Unorm})
		f, err := d.CopyToReadback(rt, sb)
		if err != nil {
			t.Fatal(err)
		}
		if f <= last {
			t.Errorf("fence %d not increasing after %d", f, last)
		}
		last = f
		bufs = append(bufs, sb)
	}
	if d.Outstanding() != 3 {
		t.Errorf("Outstanding() = %d, want 3", d.Outstanding())
	}
	if !d.PollFence(last) {
		t.Error("PollFence(last) = false, copies complete synchronously")
	}
	if d.PollFence(last + 1) {
		t.Error("PollFence of a future fence = true")
	}
	if err := d.WaitFence(last + 1); !errors.Is(err, gpu.ErrFenceTimeout) {
		t.Errorf("WaitFence(future) = %v, want ErrFenceTimeout", err)
	}

	for _, sb := range bufs {
		if _, err := d.MapReadback(sb); err != nil {
			t.Fatal(err)
		}
	}
	if d.Outstanding() != 0 {
		t.Errorf("Outstanding() after mapping = %d, want 0", d.Outstanding())
	}
	if d.MaxOutstanding() != 3 {
		t.Errorf("MaxOutstanding() = %d, want 3", d.MaxOutstanding())
	}

	if _, err := d.MapReadback(bufs[0]); err == nil {
		t.Error("mapping twice should fail")
	}
	d.UnmapReadback(bufs[0])
	if _, err := d.MapReadback(bufs[0]); err != nil {
		t.Errorf("MapReadback after unmap: %v", err)
	}
}

func TestForeignResources(t *testing.T) {
	a, b := New(), New()
	rt := newTarget(t, a, 2, 2, gputypes.TextureFormatBGRA8Unorm, false)
	if err := b.SubmitDraw(rt, nil); !errors.Is(err, gpu.ErrForeignResource) {
		t.Errorf("SubmitDraw err = %v, want ErrForeignResource", err)
	}
}

func TestClose(t *testing.T) {
	d := New()
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	_, err := d.CreateRenderTarget(gpu.RenderTargetDescriptor{Width: 1, Height: 1, Format: gputypes.TextureFormatBGRA8Unorm})
	if !errors.Is(err, gpu.ErrDeviceClosed) {
		t.Errorf("err = %v, want ErrDeviceClosed", err)
	}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
