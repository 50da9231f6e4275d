package gpu

import (
	"fmt"
	"sync"
)

// StagingPool recycles read-back buffers.
//
// Acquire, Release and Clear run on the render goroutine. ReleaseForUnmap
// may be called from any goroutine once the mapped data has been consumed;
// the buffer is unmapped and returned to the free list by the next Acquire
// or Clear, because unmapping is a device operation.
type StagingPool struct {
	device  Device
	free    []StagingBuffer
	created int

	mu      sync.Mutex
	toUnmap []StagingBuffer
}

// NewStagingPool creates an empty pool.
func NewStagingPool(device Device) *StagingPool {
	return &StagingPool{device: device}
}

// Acquire returns a free buffer that can hold a desc sized copy, creating
// one when nothing suitable is idle. An exact match is preferred; otherwise
// the smallest buffer of the same format that contains the requested
// extent and is less than twice the requested size is reused.
func (p *StagingPool) Acquire(desc StagingBufferDescriptor) (StagingBuffer, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("staging buffer %dx%d: %w", desc.Width, desc.Height, ErrInvalidSize)
	}
	p.processUnmaps()

	if i := p.find(desc); i >= 0 {
		b := p.free[i]
		last := len(p.free) - 1
		p.free[i] = p.free[last]
		p.free[last] = nil
		p.free = p.free[:last]
		return b, nil
	}

	if desc.Label == "" {
		desc.Label = fmt.Sprintf("bake_staging_%dx%d", desc.Width, desc.Height)
	}
	b, err := p.device.CreateStagingBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	p.created++
	Logger().Debug("staging buffer created",
		"width", desc.Width, "height", desc.Height, "format", desc.Format, "bytes", b.Size())
	return b, nil
}

func (p *StagingPool) find(desc StagingBufferDescriptor) int {
	for i, b := range p.free {
		d := b.Descriptor()
		if d.Width == desc.Width && d.Height == desc.Height && d.Format == desc.Format {
			return i
		}
	}

	var candidates []int
	for i, b := range p.free {
		d := b.Descriptor()
		if d.Format == desc.Format && d.Width >= desc.Width && d.Height >= desc.Height {
			candidates = append(candidates, i)
		}
	}
	j := smallestFit(len(candidates), func(j int) uint64 {
		return p.free[candidates[j]].Descriptor().ByteSize()
	}, desc.ByteSize())
	if j < 0 {
		return -1
	}
	return candidates[j]
}

// processUnmaps unmaps buffers released by workers and makes them available.
func (p *StagingPool) processUnmaps() {
	p.mu.Lock()
	pending := p.toUnmap
	p.toUnmap = nil
	p.mu.Unlock()

	for _, b := range pending {
		p.device.UnmapReadback(b)
		p.free = append(p.free, b)
	}
}

// Release returns an unmapped buffer to the free list.
func (p *StagingPool) Release(b StagingBuffer) {
	if b != nil {
		p.free = append(p.free, b)
	}
}

// ReleaseForUnmap queues a mapped buffer for unmapping. Safe for concurrent
// use.
func (p *StagingPool) ReleaseForUnmap(b StagingBuffer) {
	if b == nil {
		return
	}
	p.mu.Lock()
	p.toUnmap = append(p.toUnmap, b)
	p.mu.Unlock()
}

// PendingUnmap returns the number of buffers waiting to be unmapped.
func (p *StagingPool) PendingUnmap() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.toUnmap)
}

// Free returns the number of idle buffers.
func (p *StagingPool) Free() int { return len(p.free) }

// Created returns the number of buffers allocated since the last Clear.
func (p *StagingPool) Created() int { return p.created }

// Clear unmaps pending buffers and destroys every idle buffer. No copy into
// or mapping of a pooled buffer may be outstanding.
func (p *StagingPool) Clear() {
	p.processUnmaps()
	for _, b := range p.free {
		p.device.DestroyStagingBuffer(b)
	}
	p.free = nil
	p.created = 0
}
