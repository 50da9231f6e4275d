// Package gpu defines the device abstraction the baker renders through and
// the resource pools layered on top of it.
//
// A Device is driven from a single render goroutine: every method except
// CompileShader must be called from that goroutine. CompileShader is safe
// for concurrent use so shader compilation can run on worker goroutines.
//
// Two implementations ship with the module: gpu/software rasterizes on the
// CPU and gpu/wgpu records work through a gogpu/wgpu hal device.
package gpu

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Sentinel errors returned by devices and pools.
var (
	// ErrInvalidSize is returned when a resource is requested with a
	// non-positive extent.
	ErrInvalidSize = errors.New("gpu: invalid resource size")

	// ErrUnsupportedFormat is returned for pixel formats a device cannot
	// render to or read back.
	ErrUnsupportedFormat = errors.New("gpu: unsupported pixel format")

	// ErrForeignResource is returned when a handle created by another
	// device is passed in.
	ErrForeignResource = errors.New("gpu: resource belongs to another device")

	// ErrNotMapped is returned when unmapping a buffer that is not mapped.
	ErrNotMapped = errors.New("gpu: staging buffer is not mapped")

	// ErrFenceTimeout is returned when a fence does not signal in time.
	ErrFenceTimeout = errors.New("gpu: fence wait timed out")

	// ErrDeviceClosed is returned after Close.
	ErrDeviceClosed = errors.New("gpu: device closed")
)

// HoleColor is the clear color of bake render targets. Pixels that still
// hold it after a draw were never covered by geometry.
var HoleColor = gputypes.Color{R: 1, G: 0, B: 1, A: 1}

// Limits describes device capabilities relevant to baking.
type Limits struct {
	// MaxTextureDimension is the largest width or height of a render target.
	MaxTextureDimension int
}

// RenderTargetDescriptor describes a render target.
type RenderTargetDescriptor struct {
	Label  string
	Width  int
	Height int
	Format gputypes.TextureFormat

	// LinearGamma stores shader output unchanged. When false, 8-bit targets
	// encode output to sRGB.
	LinearGamma bool

	ClearColor gputypes.Color
}

// StagingBufferDescriptor describes a CPU readable copy destination.
type StagingBufferDescriptor struct {
	Label  string
	Width  int
	Height int
	Format gputypes.TextureFormat
}

// ByteSize returns the tightly packed size of the described surface.
func (d StagingBufferDescriptor) ByteSize() uint64 {
	return uint64(d.Width) * uint64(d.Height) * uint64(BytesPerPixel(d.Format))
}

// RenderTarget is a device render target.
type RenderTarget interface {
	Descriptor() RenderTargetDescriptor
}

// StagingBuffer is a device buffer that can be mapped for reading.
type StagingBuffer interface {
	Descriptor() StagingBufferDescriptor
	// Size returns the allocated size in bytes.
	Size() uint64
}

// Program is a compiled draw program bound to a target format.
type Program interface {
	Label() string
}

// Fence identifies a point in the device's submission stream.
type Fence uint64

// ShaderSource is the input to CompileShader.
type ShaderSource struct {
	Label string
	WGSL  string
}

// CompiledShader is device ready shader code. Devices that do not execute
// shaders leave SPIRV empty.
type CompiledShader struct {
	Label string
	WGSL  string
	SPIRV []uint32
}

// FragmentFunc evaluates a fragment on the CPU and returns the output color.
type FragmentFunc func(f *Fragment) [4]float32

// ProgramDescriptor describes a program to create.
type ProgramDescriptor struct {
	Label    string
	Shader   *CompiledShader
	Fragment FragmentFunc
	Format   gputypes.TextureFormat
	// LinearGamma selects a linear or sRGB encoding target for 8-bit formats.
	LinearGamma bool
}

// DrawCall is a single indexed draw.
type DrawCall struct {
	Program  Program
	Geometry *Geometry
}

// Mapping is the CPU view of a mapped staging buffer. Data stays valid until
// the buffer is unmapped.
type Mapping struct {
	Data        []byte
	Width       int
	Height      int
	BytesPerRow int
	Format      gputypes.TextureFormat
}

// Device is the minimal GPU interface the bake pipeline needs.
type Device interface {
	// Name returns a short backend description for logs.
	Name() string

	Limits() Limits

	CreateRenderTarget(desc RenderTargetDescriptor) (RenderTarget, error)
	DestroyRenderTarget(t RenderTarget)

	CreateStagingBuffer(desc StagingBufferDescriptor) (StagingBuffer, error)
	DestroyStagingBuffer(b StagingBuffer)

	// CompileShader turns WGSL into device code. Safe for concurrent use.
	CompileShader(src ShaderSource) (*CompiledShader, error)

	CreateProgram(desc ProgramDescriptor) (Program, error)
	DestroyProgram(p Program)

	// SubmitDraw clears t to its clear color and draws into it. A nil draw
	// or one without triangles only clears.
	SubmitDraw(t RenderTarget, draw *DrawCall) error

	// CopyToReadback copies t into b and returns a fence that signals when
	// the copy has completed.
	CopyToReadback(t RenderTarget, b StagingBuffer) (Fence, error)

	PollFence(f Fence) bool
	WaitFence(f Fence) error

	// MapReadback maps b for reading. The fence of the last copy into b must
	// have signaled.
	MapReadback(b StagingBuffer) (Mapping, error)
	UnmapReadback(b StagingBuffer)

	Close() error
}

// BytesPerPixel returns the texel size of a readable format, or 0.
func BytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm:
		return 4
	case gputypes.TextureFormatRGBA16Float:
		return 8
	}
	return 0
}

// IsSupportedFormat reports whether f can be used for bake targets.
func IsSupportedFormat(f gputypes.TextureFormat) bool {
	return BytesPerPixel(f) != 0
}
