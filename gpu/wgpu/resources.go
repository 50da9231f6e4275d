package wgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/bake/gpu"
)

type renderTarget struct {
	device  *Device
	desc    gpu.RenderTargetDescriptor
	texture hal.Texture
	view    hal.TextureView
}

func (t *renderTarget) Descriptor() gpu.RenderTargetDescriptor { return t.desc }

type stagingBuffer struct {
	device      *Device
	desc        gpu.StagingBufferDescriptor
	buf         hal.Buffer
	bytesPerRow int
	size        uint64

	// CPU copy filled by MapReadback.
	data []byte

	width, height int
	format        gputypes.TextureFormat
}

func (b *stagingBuffer) Descriptor() gpu.StagingBufferDescriptor { return b.desc }
func (b *stagingBuffer) Size() uint64                            { return b.size }

type program struct {
	device   *Device
	desc     gpu.ProgramDescriptor
	module   hal.ShaderModule
	pipeline hal.RenderPipeline
}

func (p *program) Label() string { return p.desc.Label }

type vertexBuffer struct {
	buf  hal.Buffer
	size uint64
}

func (d *Device) checkSize(w, h int) error {
	if w <= 0 || h <= 0 || w > d.maxDimension || h > d.maxDimension {
		return fmt.Errorf("wgpu: %dx%d: %w", w, h, gpu.ErrInvalidSize)
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
	if !gpu.IsSupportedFormat(desc.Format) {
		return nil, fmt.Errorf("wgpu: render target %v: %w", desc.Format, gpu.ErrUnsupportedFormat)
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        textureFormat(desc.Format, desc.LinearGamma),
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: desc.Label + "_view",
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create texture view %q: %w", desc.Label, err)
	}
	return &renderTarget{device: d, desc: desc, texture: tex, view: view}, nil
}

// DestroyRenderTarget implements gpu.Device.
func (d *Device) DestroyRenderTarget(t gpu.RenderTarget) {
	rt, ok := t.(*renderTarget)
	if !ok || rt.device != d || rt.texture == nil {
		return
	}
	d.device.DestroyTextureView(rt.view)
	d.device.DestroyTexture(rt.texture)
	rt.view, rt.texture = nil, nil
}

// CreateStagingBuffer implements gpu.Device.
func (d *Device) CreateStagingBuffer(desc gpu.StagingBufferDescriptor) (gpu.StagingBuffer, error) {
	if d.closed {
		return nil, gpu.ErrDeviceClosed
	}
	if err := d.checkSize(desc.Width, desc.Height); err != nil {
		return nil, err
	}
	if !gpu.IsSupportedFormat(desc.Format) {
		return nil, fmt.Errorf("wgpu: staging buffer %v: %w", desc.Format, gpu.ErrUnsupportedFormat)
	}

	pitch := alignedBytesPerRow(desc.Width, desc.Format)
	size := uint64(pitch) * uint64(desc.Height)
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer %q: %w", desc.Label, err)
	}
	return &stagingBuffer{device: d, desc: desc, buf: buf, bytesPerRow: pitch, size: size}, nil
}

// DestroyStagingBuffer implements gpu.Device.
func (d *Device) DestroyStagingBuffer(b gpu.StagingBuffer) {
	sb, ok := b.(*stagingBuffer)
	if !ok || sb.device != d || sb.buf == nil {
		return
	}
	d.device.DestroyBuffer(sb.buf)
	sb.buf, sb.data = nil, nil
}

// CompileShader implements gpu.Device. It only runs naga and is safe for
// concurrent use.
func (d *Device) CompileShader(src gpu.ShaderSource) (*gpu.CompiledShader, error) {
	spirv, err := compileSPIRV(src.WGSL)
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s: %w", src.Label, err)
	}
	return &gpu.CompiledShader{Label: src.Label, WGSL: src.WGSL, SPIRV: spirv}, nil
}

// compileSPIRV compiles WGSL into little-endian SPIR-V words.
func compileSPIRV(source string) ([]uint32, error) {
	code, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words, nil
}

// CreateProgram implements gpu.Device.
func (d *Device) CreateProgram(desc gpu.ProgramDescriptor) (gpu.Program, error) {
	if d.closed {
		return nil, gpu.ErrDeviceClosed
	}
	if desc.Shader == nil || len(desc.Shader.SPIRV) == 0 {
		return nil, fmt.Errorf("wgpu: program %q has no SPIR-V", desc.Label)
	}
	if !gpu.IsSupportedFormat(desc.Format) {
		return nil, fmt.Errorf("wgpu: program %q format %v: %w", desc.Label, desc.Format, gpu.ErrUnsupportedFormat)
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{SPIRV: desc.Shader.SPIRV},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %q: %w", desc.Label, err)
	}

	pipeline, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: d.layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: gpu.VertexEntryPoint,
			Buffers:    vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: gpu.FragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    textureFormat(desc.Format, desc.LinearGamma),
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		d.device.DestroyShaderModule(module)
		return nil, fmt.Errorf("wgpu: create render pipeline %q: %w", desc.Label, err)
	}
	return &program{device: d, desc: desc, module: module, pipeline: pipeline}, nil
}

// DestroyProgram implements gpu.Device.
func (d *Device) DestroyProgram(p gpu.Program) {
	prog, ok := p.(*program)
	if !ok || prog.device != d || prog.pipeline == nil {
		return
	}
	d.device.DestroyRenderPipeline(prog.pipeline)
	d.device.DestroyShaderModule(prog.module)
	prog.pipeline, prog.module = nil, nil
}

func vertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{{
		ArrayStride: gpu.VertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  gpu.VertexAttributes(),
	}}
}
