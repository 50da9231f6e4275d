package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// RenderTargetKey identifies interchangeable render targets.
type RenderTargetKey struct {
	Width       int
	Height      int
	Format      gputypes.TextureFormat
	LinearGamma bool
}

func keyOf(d RenderTargetDescriptor) RenderTargetKey {
	return RenderTargetKey{Width: d.Width, Height: d.Height, Format: d.Format, LinearGamma: d.LinearGamma}
}

// RenderTargetPool recycles render targets by exact key.
//
// The pool is owned by the render goroutine and is not safe for concurrent
// use. A target may be released right after the draw into it was submitted:
// device work is ordered, so the next draw into the same target happens
// after the copy out of it.
type RenderTargetPool struct {
	device  Device
	free    []RenderTarget
	created int
}

// NewRenderTargetPool creates an empty pool.
func NewRenderTargetPool(device Device) *RenderTargetPool {
	return &RenderTargetPool{device: device}
}

// Acquire returns a free target matching the key or creates one. Targets
// are cleared to magenta and use the default target gamma.
func (p *RenderTargetPool) Acquire(key RenderTargetKey) (RenderTarget, error) {
	if key.Width <= 0 || key.Height <= 0 {
		return nil, fmt.Errorf("render target %dx%d: %w", key.Width, key.Height, ErrInvalidSize)
	}
	for i, t := range p.free {
		if keyOf(t.Descriptor()) == key {
			last := len(p.free) - 1
			p.free[i] = p.free[last]
			p.free[last] = nil
			p.free = p.free[:last]
			return t, nil
		}
	}

	t, err := p.device.CreateRenderTarget(RenderTargetDescriptor{
		Label:       fmt.Sprintf("bake_target_%dx%d", key.Width, key.Height),
		Width:       key.Width,
		Height:      key.Height,
		Format:      key.Format,
		LinearGamma: key.LinearGamma,
		ClearColor:  HoleColor,
	})
	if err != nil {
		return nil, fmt.Errorf("create render target: %w", err)
	}
	p.created++
	Logger().Debug("render target created",
		"width", key.Width, "height", key.Height, "format", key.Format, "linear", key.LinearGamma)
	return t, nil
}

// Release returns t to the free list.
func (p *RenderTargetPool) Release(t RenderTarget) {
	if t != nil {
		p.free = append(p.free, t)
	}
}

// Free returns the number of idle targets.
func (p *RenderTargetPool) Free() int { return len(p.free) }

// Created returns the number of targets allocated since the last Clear.
func (p *RenderTargetPool) Created() int { return p.created }

// Clear destroys all idle targets. Targets still borrowed are not tracked
// and must be released first.
func (p *RenderTargetPool) Clear() {
	for _, t := range p.free {
		p.device.DestroyRenderTarget(t)
	}
	p.free = nil
	p.created = 0
}
