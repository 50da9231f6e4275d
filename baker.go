package bake

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/bake/gpu"
	"github.com/gogpu/bake/gpu/software"
	"github.com/gogpu/bake/internal/debugdump"
	"github.com/gogpu/bake/internal/parallel"
	"github.com/gogpu/bake/material"
	"github.com/gogpu/bake/pipeline"
	"github.com/gogpu/bake/shader"
)

// Baker renders material properties into pixel buffers.
//
// A Baker owns a render goroutine that drives the device, a worker pool for
// shader compilation, geometry preparation and finalization, and the
// render target, staging buffer and shader proxy caches. Bake calls are
// serialized; all methods are safe for concurrent use.
type Baker struct {
	opts       options
	device     gpu.Device
	ownsDevice bool
	maxSize    int

	pool    *parallel.WorkerPool
	queue   *pipeline.Queue
	shaders *shader.Cache
	dumper  *debugdump.Dumper

	// Owned by the render goroutine.
	targets *gpu.RenderTargetPool
	staging *gpu.StagingPool

	mu     sync.Mutex
	closed bool
	stats  Stats
}

// Stats describes the work done by a Baker since creation.
type Stats struct {
	Batches     int
	Submissions int

	// MaxInFlight is the largest number of submissions that were issued
	// and unread at the same time.
	MaxInFlight int

	TargetsCreated int
	Shaders        shader.Stats
}

// New creates a Baker.
func New(opts ...Option) (*Baker, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := &Baker{opts: o, device: o.device}
	if b.device == nil {
		b.device = software.New()
		b.ownsDevice = true
	}

	b.maxSize = b.device.Limits().MaxTextureDimension
	if o.maxTextureSize > 0 && o.maxTextureSize < b.maxSize {
		b.maxSize = o.maxTextureSize
	}
	if b.maxSize <= 0 {
		return nil, fmt.Errorf("bake: device %s reports no usable texture size", b.device.Name())
	}

	b.pool = parallel.NewWorkerPool(o.workers)
	b.queue = pipeline.NewQueue(0)
	b.shaders = shader.NewCache(b.device, b.pool)
	b.targets = gpu.NewRenderTargetPool(b.device)
	b.staging = gpu.NewStagingPool(b.device)
	if o.debugDir != "" {
		b.dumper = debugdump.New(o.debugDir)
	}

	Logger().Info("baker ready",
		"device", b.device.Name(),
		"max_size", b.maxSize,
		"pipeline_depth", o.pipelineDepth,
		"workers", b.pool.Workers())
	return b, nil
}

// Device returns the device the Baker renders with.
func (b *Baker) Device() gpu.Device { return b.device }

// MaxTextureSize returns the largest width or height a bake is clamped to.
func (b *Baker) MaxTextureSize() int { return b.maxSize }

// InvalidateMaterial destroys cached shader proxies of the material with the
// given ID and of every instance derived from it. Call it whenever a
// material changes. It returns the number of proxies removed.
func (b *Baker) InvalidateMaterial(id material.ID) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	var n int
	err := b.queue.Do(func() error {
		n = b.shaders.Invalidate(id)
		return nil
	})
	return n, err
}

// Stats returns a snapshot of the Baker counters.
func (b *Baker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Shaders = b.shaders.Stats()
	return s
}

// Close releases every pooled resource and stops the render goroutine and
// the worker pool. A device created by New is closed as well. Close is safe
// to call multiple times.
func (b *Baker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	b.shaders.FinishCompilation()
	err := b.queue.Do(func() error {
		b.shaders.Clear()
		b.staging.Clear()
		b.targets.Clear()
		return nil
	})
	b.queue.Close()
	b.pool.Close()

	if b.ownsDevice {
		err = errors.Join(err, b.device.Close())
	}
	Logger().Debug("baker closed")
	return err
}
