package bake

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/bake/gpu"
	"github.com/gogpu/bake/internal/parallel"
	"github.com/gogpu/bake/mesh"
	"github.com/gogpu/bake/pipeline"
	"github.com/gogpu/bake/postprocess"
	"github.com/gogpu/bake/shader"
)

// finalizePollInterval is how often Bake checks for outstanding finalize
// tasks once every read-back has been issued.
const finalizePollInterval = time.Millisecond

// prepared is the geometry of one job for each size it is baked at.
type prepared struct {
	items mesh.Items
	err   error
}

// unit is one (job, property) submission.
type unit struct {
	job    int
	slot   int
	prop   PropertySize
	size   Size
	format gputypes.TextureFormat
	linear bool
	proxy  *shader.Proxy
}

// batch is the state shared by the render goroutine and the finalize
// tasks of one Bake call.
type batch struct {
	jobs    []Job
	sources []*MeshSource
	outputs []Output

	sched *pipeline.Scheduler

	// tasks counts read-backs issued and not yet finalized.
	tasks atomic.Int64

	errOnce sync.Once
	err     error
	failed  atomic.Bool
}

func (bt *batch) fail(err error) {
	bt.errOnce.Do(func() {
		bt.err = err
		bt.failed.Store(true)
	})
}

// Bake renders every property of every job. sources[i] is the surface of
// jobs[i] and may be nil.
//
// The returned slice has one Output per job, in job order. Jobs are
// submitted largest mesh first. A job without properties or without a
// material produces an empty Output. Each axis of a requested size is
// clamped to [1, MaxTextureSize].
//
// The context is only checked before the batch starts: once submitted, a
// batch runs to completion. A device error stops further submissions and
// is returned together with the partial outputs.
func (b *Baker) Bake(ctx context.Context, jobs []Job, sources []*MeshSource) ([]Output, error) {
	if len(jobs) != len(sources) {
		return nil, fmt.Errorf("%w: %d jobs, %d sources", ErrMismatchedInputs, len(jobs), len(sources))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	start := time.Now()
	bt := &batch{
		jobs:    jobs,
		sources: sources,
		outputs: make([]Output, len(jobs)),
		sched:   pipeline.NewScheduler(b.opts.pipelineDepth),
	}

	order := processingOrder(sources)
	units := b.plan(bt, order)
	if err := b.prepareSources(sources); err != nil {
		return nil, err
	}
	b.run(bt, order, units)

	// Every read command has dispatched its finalize task after this.
	err := b.queue.Do(func() error {
		bt.sched.Flush()
		return nil
	})
	if err != nil {
		bt.fail(err)
	}
	for bt.tasks.Load() > 0 {
		time.Sleep(finalizePollInterval)
	}

	var targetsCreated int
	_ = b.queue.Do(func() error {
		b.staging.Clear()
		targetsCreated = b.targets.Created()
		if !b.opts.proxyCaching {
			b.shaders.FinishCompilation()
			b.shaders.Clear()
		}
		return nil
	})

	b.stats.Batches++
	b.stats.Submissions += bt.sched.Submitted()
	b.stats.MaxInFlight = max(b.stats.MaxInFlight, bt.sched.MaxPending())
	b.stats.TargetsCreated = targetsCreated

	Logger().Info("bake batch complete",
		"jobs", len(jobs),
		"submissions", bt.sched.Submitted(),
		"max_in_flight", bt.sched.MaxPending(),
		"elapsed", time.Since(start))
	return bt.outputs, bt.err
}

// processingOrder returns job indices sorted by descending vertex count so
// the largest geometry buffers are allocated first and reused afterwards.
func processingOrder(sources []*MeshSource) []int {
	order := make([]int, len(sources))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(sources[b].VertexCount(), sources[a].VertexCount())
	})
	return order
}

// prepareSources validates every mesh up front so a malformed source fails
// the batch before any device work is issued.
func (b *Baker) prepareSources(sources []*MeshSource) error {
	var g errgroup.Group
	g.SetLimit(b.pool.Workers())
	for i, src := range sources {
		if src == nil {
			continue
		}
		g.Go(func() error {
			if err := src.Validate(); err != nil {
				return fmt.Errorf("bake: source %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// plan sizes the outputs and creates the shader proxies of every unit, in
// processing order, so compilation starts before geometry is needed.
func (b *Baker) plan(bt *batch, order []int) [][]unit {
	units := make([][]unit, len(bt.jobs))
	for _, ji := range order {
		job := &bt.jobs[ji]
		if job.Material == nil {
			Logger().Warn("bake job without material", "job", ji)
			continue
		}
		props := job.properties()
		out := &bt.outputs[ji]
		out.Properties = make([]PropertyOutput, len(props))

		for k, ps := range props {
			out.Properties[k] = PropertyOutput{Property: ps.Property, EmissiveScale: 1}
			size := clampSize(ps.Size, b.maxSize)
			format, linear := renderSettings(ps.Property)
			if job.forceLinear {
				linear = true
			}
			units[ji] = append(units[ji], unit{
				job:    ji,
				slot:   k,
				prop:   ps,
				size:   size,
				format: format,
				linear: linear,
				proxy:  b.shaders.GetOrCreate(job.Material, ps.Property, job.BlendMode),
			})
		}
	}
	return units
}

// run walks the jobs in order, keeping geometry preparation prepareDepth
// jobs ahead, and enqueues one render command per unit.
func (b *Baker) run(bt *batch, order []int, units [][]unit) {
	depth := b.opts.prepareDepth
	ahead := make([]*parallel.Future[prepared], depth)
	next := 0
	prepareNext := func() {
		ji := order[next]
		ahead[next%depth] = b.prepare(bt.sources[ji], units[ji])
		next++
	}
	for next < len(order) && next < depth {
		prepareNext()
	}

	for i, ji := range order {
		p := ahead[i%depth].Wait()
		if next < len(order) {
			prepareNext()
		}
		if bt.failed.Load() {
			continue
		}
		if p.err != nil {
			bt.fail(fmt.Errorf("bake: job %d geometry: %w", ji, p.err))
			continue
		}

		src := bt.sources[ji]
		if src != nil && src.Mesh != nil {
			Logger().Debug("bake job",
				"job", ji,
				"material", bt.jobs[ji].Material.Name(),
				"vertices", src.VertexCount(),
				"vertex_color_hash", src.VertexColorHash)
		}

		for _, u := range units[ji] {
			u.proxy.Wait()
			geom := p.items[u.size]
			err := b.queue.Enqueue(func() {
				if bt.failed.Load() {
					return
				}
				if err := bt.sched.Submit(func() (pipeline.ReadCommand, error) {
					return b.submit(bt, u, geom)
				}); err != nil {
					bt.fail(err)
				}
			})
			if err != nil {
				bt.fail(err)
			}
		}
	}
}

// prepare builds the geometry of a job on the worker pool.
func (b *Baker) prepare(src *MeshSource, units []unit) *parallel.Future[prepared] {
	sizes := make([]Size, len(units))
	for i, u := range units {
		sizes[i] = u.size
	}
	return parallel.Async(b.pool, func() prepared {
		items, err := mesh.Prepare(src, sizes)
		return prepared{items: items, err: err}
	})
}

// submit draws one unit and copies it into a staging buffer. It runs on
// the render goroutine and returns the command that reads the copy back.
func (b *Baker) submit(bt *batch, u unit, geom *gpu.Geometry) (pipeline.ReadCommand, error) {
	dev := b.device
	label := u.proxy.Label()

	prog, err := u.proxy.Program(dev, u.format, u.linear)
	if err != nil {
		return nil, fmt.Errorf("bake: %w", err)
	}
	target, err := b.targets.Acquire(gpu.RenderTargetKey{
		Width:       u.size.Width,
		Height:      u.size.Height,
		Format:      u.format,
		LinearGamma: u.linear,
	})
	if err != nil {
		return nil, fmt.Errorf("bake: %s: %w", label, err)
	}
	// Device work is ordered, so the target can serve the next unit as
	// soon as the copy out of it is recorded.
	defer b.targets.Release(target)

	if err := dev.SubmitDraw(target, &gpu.DrawCall{Program: prog, Geometry: geom}); err != nil {
		return nil, fmt.Errorf("bake: draw %s: %w", label, err)
	}
	staging, err := b.staging.Acquire(gpu.StagingBufferDescriptor{
		Width:  u.size.Width,
		Height: u.size.Height,
		Format: u.format,
	})
	if err != nil {
		return nil, fmt.Errorf("bake: %s: %w", label, err)
	}
	fence, err := dev.CopyToReadback(target, staging)
	if err != nil {
		b.staging.Release(staging)
		return nil, fmt.Errorf("bake: copy %s: %w", label, err)
	}

	bt.tasks.Add(1)
	return func() {
		if err := dev.WaitFence(fence); err != nil {
			bt.fail(fmt.Errorf("bake: %s: %w", label, err))
			b.staging.Release(staging)
			bt.tasks.Add(-1)
			return
		}
		m, err := dev.MapReadback(staging)
		if err != nil {
			bt.fail(fmt.Errorf("bake: map %s: %w", label, err))
			b.staging.Release(staging)
			bt.tasks.Add(-1)
			return
		}
		b.pool.Submit(func() {
			defer bt.tasks.Add(-1)
			b.finalize(bt, u, m, staging)
		})
	}, nil
}

// finalize converts a mapped read-back into the unit's output slot. It
// runs on the worker pool; each unit writes a distinct slot.
func (b *Baker) finalize(bt *batch, u unit, m gpu.Mapping, staging gpu.StagingBuffer) {
	out := &bt.outputs[u.job].Properties[u.slot]
	w, h := u.size.Width, u.size.Height

	if u.format == gputypes.TextureFormatRGBA16Float {
		out.Pixels, out.EmissiveScale = postprocess.EncodeEmissive(m.Data, m.BytesPerRow, w, h)
	} else {
		out.Pixels = postprocess.ConvertBGRA8(m.Data, m.BytesPerRow, w, h)
	}
	// Unmapping is a device operation; the render goroutine does it on the
	// next staging acquire.
	b.staging.ReleaseForUnmap(staging)

	if bt.jobs[u.job].BorderSmear {
		// A single color collapses to one texel; keep the requested
		// extent and report it as constant instead.
		if shrunk, sw, sh := postprocess.SmearAndShrink(out.Pixels, w, h); sw*sh == 1 && w*h > 1 {
			out.IsConstant = true
			out.ConstantValue = shrunk[0]
			out.Pixels = slices.Repeat(shrunk, w*h)
		} else {
			out.Pixels = shrunk
		}
	}
	out.Size = Size{Width: w, Height: h}
	if len(out.Pixels) == 1 {
		out.IsConstant = true
		out.ConstantValue = out.Pixels[0]
	}

	if b.dumper != nil {
		name := bt.jobs[u.job].Material.Name()
		if err := b.dumper.Write(name, u.job, u.prop.Property.String(), out.Pixels, w, h); err != nil {
			Logger().Warn("debug dump failed", "material", name, "property", u.prop.Property, "err", err)
		}
	}
}
