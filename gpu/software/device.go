// Package software implements gpu.Device on the CPU.
//
// It is the reference backend: triangles are rasterized with pixel-center
// sampling and a top-left fill rule, and every fragment is shaded by the
// program's CPU evaluator. Copies complete synchronously, so fences signal
// as soon as CopyToReadback returns. The device keeps counters of copies
// that have been issued but not yet mapped, which tests use to observe
// pipeline back-pressure.
package software

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/bake/gpu"
)

// DefaultMaxTextureDimension matches the common desktop GPU limit.
const DefaultMaxTextureDimension = 8192

// DefaultRowAlignment mirrors the copy pitch alignment of GPU backends so
// consumers of Mapping always honor BytesPerRow.
const DefaultRowAlignment = 256

// Option configures a Device.
type Option func(*Device)

// WithMaxTextureDimension sets the reported texture size limit.
func WithMaxTextureDimension(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.maxDimension = n
		}
	}
}

// WithRowAlignment sets the row pitch alignment of staging buffers.
// Values below 1 disable padding.
func WithRowAlignment(n int) Option {
	return func(d *Device) {
		d.rowAlignment = max(n, 1)
	}
}

// Device is a CPU implementation of gpu.Device.
type Device struct {
	maxDimension int
	rowAlignment int
	closed       bool

	lastFence gpu.Fence

	// Copies issued and not yet mapped.
	outstanding    int
	maxOutstanding int

	draws     int
	compileMu sync.Mutex
	compiles  int
}

// New creates a software device.
func New(opts ...Option) *Device {
	d := &Device{
		maxDimension: DefaultMaxTextureDimension,
		rowAlignment: DefaultRowAlignment,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ gpu.Device = (*Device)(nil)

type renderTarget struct {
	device *Device
	desc   gpu.RenderTargetDescriptor
	bpp    int
	pixels []byte
}

func (t *renderTarget) Descriptor() gpu.RenderTargetDescriptor { return t.desc }

type stagingBuffer struct {
	device      *Device
	desc        gpu.StagingBufferDescriptor
	bytesPerRow int
	data        []byte

	// Extent of the last copy.
	width, height int
	format        gputypes.TextureFormat

	unread bool
	mapped bool
}

func (b *stagingBuffer) Descriptor() gpu.StagingBufferDescriptor { return b.desc }
func (b *stagingBuffer) Size() uint64                            { return uint64(len(b.data)) }

type program struct {
	device *Device
	desc   gpu.ProgramDescriptor
}

func (p *program) Label() string { return p.desc.Label }

// Name implements gpu.Device.
func (d *Device) Name() string { return "software" }

// Limits implements gpu.Device.
func (d *Device) Limits() gpu.Limits {
	return gpu.Limits{MaxTextureDimension: d.maxDimension}
}

func (d *Device) checkSize(w, h int) error {
	if w <= 0 || h <= 0 || w > d.maxDimension || h > d.maxDimension {
		return fmt.Errorf("software: %dx%d: %w", w, h, gpu.ErrInvalidSize)
	}
	return nil
}

// CreateRenderTarget implements gpu.Device.
func (d *Device) CreateRenderTarget(desc gpu.RenderTargetDescriptor) (gpu.RenderTarget, error) {
	if d.closed {
		return nil, gpu.ErrDeviceClosed
	}
	if err := d.checkSize(desc.Width, desc.Height); err != nil {
		return nil, err
	}
	bpp := gpu.BytesPerPixel(desc.Format)
	if bpp == 0 {
		return nil, fmt.Errorf("software: render target %v: %w", desc.Format, gpu.ErrUnsupportedFormat)
	}
	return &renderTarget{
		device: d,
		desc:   desc,
		bpp:    bpp,
		pixels: make([]byte, desc.Width*desc.Height*bpp),
	}, nil
}

// DestroyRenderTarget implements gpu.Device.
func (d *Device) DestroyRenderTarget(t gpu.RenderTarget) {
	if rt, ok := t.(*renderTarget); ok && rt.device == d {
		rt.pixels = nil
	}
}

// CreateStagingBuffer implements gpu.Device.
func (d *Device) CreateStagingBuffer(desc gpu.StagingBufferDescriptor) (gpu.StagingBuffer, error) {
	if d.closed {
		return nil, gpu.ErrDeviceClosed
	}
	if err := d.checkSize(desc.Width, desc.Height); err != nil {
		return nil, err
	}
	bpp := gpu.BytesPerPixel(desc.Format)
	if bpp == 0 {
		return nil, fmt.Errorf("software: staging buffer %v: %w", desc.Format, gpu.ErrUnsupportedFormat)
	}
	pitch := alignUp(desc.Width*bpp, d.rowAlignment)
	return &stagingBuffer{
		device:      d,
		desc:        desc,
		bytesPerRow: pitch,
		data:        make([]byte, pitch*desc.Height),
	}, nil
}

// DestroyStagingBuffer implements gpu.Device.
func (d *Device) DestroyStagingBuffer(b gpu.StagingBuffer) {
	sb, ok := b.(*stagingBuffer)
	if !ok || sb.device != d {
		return
	}
	if sb.unread {
		d.outstanding--
		sb.unread = false
	}
	sb.data = nil
}

// CompileShader implements gpu.Device. The software device evaluates
// programs through their CPU fragment function, so no device code is
// produced.
func (d *Device) CompileShader(src gpu.ShaderSource) (*gpu.CompiledShader, error) {
	d.compileMu.Lock()
	d.compiles++
	d.compileMu.Unlock()
	return &gpu.CompiledShader{Label: src.Label, WGSL: src.WGSL}, nil
}

// CreateProgram implements gpu.Device.
func (d *Device) CreateProgram(desc gpu.ProgramDescriptor) (gpu.Program, error) {
	if d.closed {
		return nil, gpu.ErrDeviceClosed
	}
	if desc.Fragment == nil {
		return nil, fmt.Errorf("software: program %q has no fragment function", desc.Label)
	}
	if !gpu.IsSupportedFormat(desc.Format) {
		return nil, fmt.Errorf("software: program %q format %v: %w", desc.Label, desc.Format, gpu.ErrUnsupportedFormat)
	}
	return &program{device: d, desc: desc}, nil
}

// DestroyProgram implements gpu.Device.
func (d *Device) DestroyProgram(gpu.Program) {}

// SubmitDraw implements gpu.Device.
func (d *Device) SubmitDraw(t gpu.RenderTarget, draw *gpu.DrawCall) error {
	if d.closed {
		return gpu.ErrDeviceClosed
	}
	rt, ok := t.(*renderTarget)
	if !ok || rt.device != d {
		return gpu.ErrForeignResource
	}

	rt.clear()
	if draw == nil || draw.Geometry.TriangleCount() == 0 {
		return nil
	}

	prog, ok := draw.Program.(*program)
	if !ok || prog.device != d {
		return gpu.ErrForeignResource
	}
	if prog.desc.Format != rt.desc.Format {
		return fmt.Errorf("software: program %q targets %v, render target is %v",
			prog.desc.Label, prog.desc.Format, rt.desc.Format)
	}

	d.draws++
	rasterize(rt, draw.Geometry, prog.desc.Fragment)
	return nil
}

// CopyToReadback implements gpu.Device.
func (d *Device) CopyToReadback(t gpu.RenderTarget, b gpu.StagingBuffer) (gpu.Fence, error) {
	if d.closed {
		return 0, gpu.ErrDeviceClosed
	}
	rt, ok := t.(*renderTarget)
	if !ok || rt.device != d {
		return 0, gpu.ErrForeignResource
	}
	sb, ok := b.(*stagingBuffer)
	if !ok || sb.device != d {
		return 0, gpu.ErrForeignResource
	}
	if sb.mapped {
		return 0, fmt.Errorf("software: copy into mapped staging buffer %q", sb.desc.Label)
	}
	w, h := rt.desc.Width, rt.desc.Height
	if sb.desc.Format != rt.desc.Format || sb.desc.Width < w || sb.desc.Height < h {
		return 0, fmt.Errorf("software: staging buffer %dx%d %v cannot hold %dx%d %v",
			sb.desc.Width, sb.desc.Height, sb.desc.Format, w, h, rt.desc.Format)
	}

	row := w * rt.bpp
	for y := range h {
		copy(sb.data[y*sb.bytesPerRow:y*sb.bytesPerRow+row], rt.pixels[y*row:(y+1)*row])
	}
	sb.width, sb.height, sb.format = w, h, rt.desc.Format

	if !sb.unread {
		sb.unread = true
		d.outstanding++
		d.maxOutstanding = max(d.maxOutstanding, d.outstanding)
	}
	d.lastFence++
	return d.lastFence, nil
}

// PollFence implements gpu.Device.
func (d *Device) PollFence(f gpu.Fence) bool { return f <= d.lastFence }

// WaitFence implements gpu.Device.
func (d *Device) WaitFence(f gpu.Fence) error {
	if f > d.lastFence {
		return fmt.Errorf("software: fence %d was never submitted: %w", f, gpu.ErrFenceTimeout)
	}
	return nil
}

// MapReadback implements gpu.Device.
func (d *Device) MapReadback(b gpu.StagingBuffer) (gpu.Mapping, error) {
	sb, ok := b.(*stagingBuffer)
	if !ok || sb.device != d {
		return gpu.Mapping{}, gpu.ErrForeignResource
	}
	if sb.mapped {
		return gpu.Mapping{}, fmt.Errorf("software: staging buffer %q is already mapped", sb.desc.Label)
	}
	sb.mapped = true
	if sb.unread {
		sb.unread = false
		d.outstanding--
	}
	return gpu.Mapping{
		Data:        sb.data,
		Width:       sb.width,
		Height:      sb.height,
		BytesPerRow: sb.bytesPerRow,
		Format:      sb.format,
	}, nil
}

// UnmapReadback implements gpu.Device.
func (d *Device) UnmapReadback(b gpu.StagingBuffer) {
	if sb, ok := b.(*stagingBuffer); ok && sb.device == d {
		sb.mapped = false
	}
}

// Close implements gpu.Device.
func (d *Device) Close() error {
	d.closed = true
	return nil
}

// Outstanding returns the number of copies issued and not yet mapped.
func (d *Device) Outstanding() int { return d.outstanding }

// MaxOutstanding returns the largest Outstanding value observed.
func (d *Device) MaxOutstanding() int { return d.maxOutstanding }

// Draws returns the number of draws that rasterized geometry.
func (d *Device) Draws() int { return d.draws }

// Compiles returns the number of CompileShader calls.
func (d *Device) Compiles() int {
	d.compileMu.Lock()
	defer d.compileMu.Unlock()
	return d.compiles
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}
