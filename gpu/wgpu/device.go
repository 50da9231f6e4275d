// Package wgpu implements gpu.Device on top of a gogpu/wgpu hal device.
//
// Render targets are hal textures, staging buffers are MapRead buffers with
// 256-byte aligned rows, and programs are render pipelines built from
// SPIR-V that gogpu/naga compiles from the generated WGSL. Draws and copies
// are recorded into one command encoder per submission; every copy ends
// the encoder and submits it with the next value of a single timeline
// fence.
package wgpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/bake/gpu"
)

// Defaults for Option values.
const (
	DefaultMaxTextureDimension = 8192
	DefaultFenceTimeout        = 5 * time.Second
)

// copyPitchAlignment is the WebGPU row alignment of texture to buffer
// copies.
const copyPitchAlignment = 256

// ErrNoHal is returned when a device provider does not expose hal handles.
var ErrNoHal = errors.New("wgpu: provider does not expose hal device and queue")

// Option configures a Device.
type Option func(*Device)

// WithMaxTextureDimension overrides the reported texture size limit.
func WithMaxTextureDimension(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.maxDimension = n
		}
	}
}

// WithFenceTimeout sets how long WaitFence blocks before failing.
func WithFenceTimeout(t time.Duration) Option {
	return func(d *Device) {
		if t > 0 {
			d.fenceTimeout = t
		}
	}
}

// WithName sets the name reported by Name.
func WithName(name string) Option {
	return func(d *Device) { d.name = name }
}

// Device is a gpu.Device backed by hal.
type Device struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance
	owned    bool

	name         string
	maxDimension int
	fenceTimeout time.Duration
	closed       bool

	layout hal.PipelineLayout

	// Timeline fence: submitted is the value of the last submission,
	// completed the highest value observed as signaled.
	fence     hal.Fence
	submitted uint64
	completed uint64

	// Open encoder and the vertex buffers its draws reference.
	encoder hal.CommandEncoder
	pending []*vertexBuffer

	inflight []submission
	vertices *gpu.BufferPool[*vertexBuffer]
}

// submission holds resources referenced by submitted work until its fence
// value signals.
type submission struct {
	value    uint64
	cmd      hal.CommandBuffer
	vertices []*vertexBuffer
}

var _ gpu.Device = (*Device)(nil)

// NewFromHal wraps an existing hal device and queue. The caller keeps
// ownership of both; Close releases only resources the Device created.
func NewFromHal(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil hal device or queue")
	}
	d := &Device{
		device:       device,
		queue:        queue,
		name:         "wgpu",
		maxDimension: DefaultMaxTextureDimension,
		fenceTimeout: DefaultFenceTimeout,
		vertices:     gpu.NewBufferPool(func(b *vertexBuffer) uint64 { return b.size }),
	}
	for _, opt := range opts {
		opt(d)
	}

	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	d.fence = fence

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "bake_pipeline_layout",
	})
	if err != nil {
		device.DestroyFence(fence)
		return nil, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	d.layout = layout

	gpu.Logger().Debug("wgpu device ready", "name", d.name, "max_dimension", d.maxDimension)
	return d, nil
}

// NewFromProvider uses the device of a host application. The provider must
// also expose HalDevice() and HalQueue() returning hal.Device and
// hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHal
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHal)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHal)
	}
	return NewFromHal(device, queue, opts...)
}

// Name implements gpu.Device.
func (d *Device) Name() string { return d.name }

// Limits implements gpu.Device.
func (d *Device) Limits() gpu.Limits {
	return gpu.Limits{MaxTextureDimension: d.maxDimension}
}

// Close waits for submitted work, then releases every resource the device
// created. Render targets, staging buffers and programs handed out must
// have been destroyed already.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.encoder != nil {
		d.encoder.DiscardEncoding()
		d.encoder = nil
		d.releaseVertices(d.pending)
		d.pending = nil
	}
	if d.submitted > d.completed {
		if err := d.WaitFence(gpu.Fence(d.submitted)); err != nil {
			errs = append(errs, err)
		}
	}
	d.retire()
	for _, b := range d.vertices.Drain() {
		d.device.DestroyBuffer(b.buf)
	}
	if d.layout != nil {
		d.device.DestroyPipelineLayout(d.layout)
		d.layout = nil
	}
	if d.fence != nil {
		d.device.DestroyFence(d.fence)
		d.fence = nil
	}
	if d.owned {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	return errors.Join(errs...)
}

// textureFormat returns the storage format of a logical bake format. Eight
// bit targets that are not linear store sRGB so the hardware encodes the
// shader output.
func textureFormat(f gputypes.TextureFormat, linear bool) gputypes.TextureFormat {
	if linear {
		return f
	}
	switch f {
	case gputypes.TextureFormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8UnormSrgb
	case gputypes.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8UnormSrgb
	}
	return f
}

func alignedBytesPerRow(width int, format gputypes.TextureFormat) int {
	row := width * gpu.BytesPerPixel(format)
	return (row + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}
