package shader

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/bake/gpu"
	"github.com/gogpu/bake/internal/parallel"
	"github.com/gogpu/bake/material"
)

// Key identifies a proxy.
type Key struct {
	Material material.ID
	Property material.PropertyKey
	Blend    material.BlendMode
}

type compileResult struct {
	shader *gpu.CompiledShader
	err    error
}

type programKey struct {
	format gputypes.TextureFormat
	linear bool
}

// Proxy is the derived program that renders one property of a material.
//
// The shader compiles in the background from creation on. Device programs
// are created lazily per target format by Program, on the render
// goroutine.
type Proxy struct {
	key      Key
	material material.Material
	property material.Property
	blend    material.BlendMode
	label    string
	wgsl     string
	fragment gpu.FragmentFunc

	compiled *parallel.Future[compileResult]

	// programs is owned by the render goroutine.
	programs map[programKey]gpu.Program
}

func newProxy(m material.Material, p material.Property, b material.BlendMode) *Proxy {
	e := Synthesize(m, p, b)
	return &Proxy{
		key:      Key{Material: m.ID(), Property: p.Key(), Blend: b},
		material: m,
		property: p,
		blend:    b,
		label:    fmt.Sprintf("bake_%s_%s_%s", m.ID(), p, b),
		wgsl:     Module(e),
		fragment: FragmentFunc(e),
		programs: make(map[programKey]gpu.Program),
	}
}

// Key returns the cache key of the proxy.
func (p *Proxy) Key() Key { return p.key }

// Material returns the source material.
func (p *Proxy) Material() material.Material { return p.material }

// Property returns the baked property.
func (p *Proxy) Property() material.Property { return p.property }

// Label returns the debug label used for device resources.
func (p *Proxy) Label() string { return p.label }

// WGSL returns the synthesized shader module.
func (p *Proxy) WGSL() string { return p.wgsl }

// IsCompiled reports whether the shader has finished compiling.
func (p *Proxy) IsCompiled() bool {
	return p.compiled == nil || p.compiled.IsReady()
}

// Wait blocks until the shader is compiled. A compile error is left for
// Program to report.
func (p *Proxy) Wait() {
	if p.compiled != nil {
		p.compiled.Wait()
	}
}

// FinishCompilation blocks until the shader is compiled and returns the
// compile error, if any.
func (p *Proxy) FinishCompilation() error {
	if p.compiled == nil {
		return nil
	}
	return p.compiled.Wait().err
}

// Program returns the device program rendering the proxy into targets of
// the given format, creating it on first use. It waits for compilation.
// Must be called on the render goroutine.
func (p *Proxy) Program(dev gpu.Device, format gputypes.TextureFormat, linear bool) (gpu.Program, error) {
	k := programKey{format: format, linear: linear}
	if prog, ok := p.programs[k]; ok {
		return prog, nil
	}

	if p.compiled == nil {
		return nil, fmt.Errorf("shader: %s was not scheduled for compilation", p.label)
	}
	res := p.compiled.Wait()
	if res.err != nil {
		return nil, fmt.Errorf("shader: compile %s: %w", p.label, res.err)
	}

	prog, err := dev.CreateProgram(gpu.ProgramDescriptor{
		Label:       p.label,
		Shader:      res.shader,
		Fragment:    p.fragment,
		Format:      format,
		LinearGamma: linear,
	})
	if err != nil {
		return nil, fmt.Errorf("shader: create program %s: %w", p.label, err)
	}
	p.programs[k] = prog
	return prog, nil
}

// release destroys the device programs. Render goroutine only.
func (p *Proxy) release(dev gpu.Device) {
	for k, prog := range p.programs {
		dev.DestroyProgram(prog)
		delete(p.programs, k)
	}
}
