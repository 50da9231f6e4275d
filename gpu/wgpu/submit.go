package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/bake/gpu"
)

// ensureEncoder opens a command encoder if none is recording.
func (d *Device) ensureEncoder() (hal.CommandEncoder, error) {
	if d.encoder != nil {
		return d.encoder, nil
	}
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "bake_encoder"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("bake_submission"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	d.encoder = enc
	return enc, nil
}

// SubmitDraw implements gpu.Device. The draw is recorded and submitted with
// the next CopyToReadback.
func (d *Device) SubmitDraw(t gpu.RenderTarget, draw *gpu.DrawCall) error {
	if d.closed {
		return gpu.ErrDeviceClosed
	}
	rt, ok := t.(*renderTarget)
	if !ok || rt.device != d {
		return gpu.ErrForeignResource
	}

	var (
		prog  *program
		vb    *vertexBuffer
		count int
	)
	if draw != nil && draw.Geometry.TriangleCount() > 0 {
		prog, ok = draw.Program.(*program)
		if !ok || prog.device != d {
			return gpu.ErrForeignResource
		}
		if prog.desc.Format != rt.desc.Format || prog.desc.LinearGamma != rt.desc.LinearGamma {
			return fmt.Errorf("wgpu: program %q does not match render target %q", prog.desc.Label, rt.desc.Label)
		}
		data := packVertices(draw.Geometry, rt.desc.Width, rt.desc.Height)
		var err error
		if vb, err = d.uploadVertices(data); err != nil {
			return err
		}
		count = len(data) / gpu.VertexStride
	}

	enc, err := d.ensureEncoder()
	if err != nil {
		if vb != nil {
			d.releaseVertices([]*vertexBuffer{vb})
		}
		return err
	}

	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "bake_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       rt.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: rt.desc.ClearColor,
		}},
	})
	if prog != nil {
		rp.SetPipeline(prog.pipeline)
		rp.SetVertexBuffer(0, vb.buf, 0)
		rp.Draw(uint32(count), 1, 0, 0)
		d.pending = append(d.pending, vb)
	}
	rp.End()
	return nil
}

// uploadVertices writes data into a pooled or new vertex buffer.
func (d *Device) uploadVertices(data []byte) (*vertexBuffer, error) {
	size := uint64(len(data))
	vb, ok := d.vertices.Get(size)
	if !ok {
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "bake_vertices",
			Size:  size,
			Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create vertex buffer: %w", err)
		}
		vb = &vertexBuffer{buf: buf, size: size}
	}
	d.queue.WriteBuffer(vb.buf, 0, data)
	return vb, nil
}

// releaseVertices returns buffers to the pool or destroys the small ones.
func (d *Device) releaseVertices(bufs []*vertexBuffer) {
	for _, vb := range bufs {
		if !d.vertices.Put(vb) {
			d.device.DestroyBuffer(vb.buf)
		}
	}
}

// packVertices expands indexed geometry into a vertex stream. Positions are
// converted from pixel space to normalized device coordinates.
func packVertices(g *gpu.Geometry, width, height int) []byte {
	n := g.TriangleCount() * 3
	out := make([]byte, n*gpu.VertexStride)
	sx := 2 / float32(width)
	sy := 2 / float32(height)

	o := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(out[o:], math.Float32bits(v))
		o += 4
	}
	for _, idx := range g.Indices[:n] {
		v := &g.Vertices[idx]
		put(v.Position[0]*sx - 1)
		put(1 - v.Position[1]*sy)
		put(v.Position[2])
		for _, f := range [][3]float32{v.TangentX, v.TangentY, v.TangentZ} {
			put(f[0])
			put(f[1])
			put(f[2])
		}
		for _, c := range v.Color {
			put(c)
		}
		for _, uv := range v.TexCoords {
			put(uv[0])
			put(uv[1])
		}
	}
	return out
}

// CopyToReadback implements gpu.Device. It closes the current encoder and
// submits it with the next fence value.
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
	w, h := rt.desc.Width, rt.desc.Height
	if sb.desc.Format != rt.desc.Format || sb.desc.Width < w || sb.desc.Height < h {
		return 0, fmt.Errorf("wgpu: staging buffer %dx%d %v cannot hold %dx%d %v",
			sb.desc.Width, sb.desc.Height, sb.desc.Format, w, h, rt.desc.Format)
	}

	enc, err := d.ensureEncoder()
	if err != nil {
		return 0, err
	}

	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: rt.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	enc.CopyTextureToBuffer(rt.texture, sb.buf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(sb.bytesPerRow), RowsPerImage: uint32(h)},
		TextureBase:  hal.ImageCopyTexture{Texture: rt.texture, MipLevel: 0},
		Size:         hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	}})
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: rt.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	sb.width, sb.height, sb.format = w, h, rt.desc.Format

	return d.submit()
}

// submit ends the open encoder and submits it with the next fence value.
func (d *Device) submit() (gpu.Fence, error) {
	enc := d.encoder
	pending := d.pending
	d.encoder, d.pending = nil, nil

	cmd, err := enc.EndEncoding()
	if err != nil {
		d.releaseVertices(pending)
		return 0, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	value := d.submitted + 1
	if err := d.queue.Submit([]hal.CommandBuffer{cmd}, d.fence, value); err != nil {
		d.device.FreeCommandBuffer(cmd)
		d.releaseVertices(pending)
		return 0, fmt.Errorf("wgpu: submit: %w", err)
	}
	d.submitted = value
	d.inflight = append(d.inflight, submission{value: value, cmd: cmd, vertices: pending})
	return gpu.Fence(value), nil
}

// PollFence implements gpu.Device.
func (d *Device) PollFence(f gpu.Fence) bool {
	if uint64(f) <= d.completed {
		return true
	}
	ok, err := d.device.Wait(d.fence, uint64(f), 0)
	if err != nil || !ok {
		return false
	}
	d.signaled(uint64(f))
	return true
}

// WaitFence implements gpu.Device.
func (d *Device) WaitFence(f gpu.Fence) error {
	if uint64(f) <= d.completed {
		return nil
	}
	if uint64(f) > d.submitted {
		return fmt.Errorf("wgpu: fence %d was never submitted: %w", f, gpu.ErrFenceTimeout)
	}
	ok, err := d.device.Wait(d.fence, uint64(f), d.fenceTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait fence %d: %w", f, err)
	}
	if !ok {
		return fmt.Errorf("wgpu: fence %d after %v: %w", f, d.fenceTimeout, gpu.ErrFenceTimeout)
	}
	d.signaled(uint64(f))
	return nil
}

func (d *Device) signaled(value uint64) {
	if value > d.completed {
		d.completed = value
	}
	d.retire()
}

// retire frees command buffers and recycles vertex buffers of completed
// submissions.
func (d *Device) retire() {
	n := 0
	for _, s := range d.inflight {
		if s.value > d.completed {
			d.inflight[n] = s
			n++
			continue
		}
		d.device.FreeCommandBuffer(s.cmd)
		d.releaseVertices(s.vertices)
	}
	clear(d.inflight[n:])
	d.inflight = d.inflight[:n]
}

// MapReadback implements gpu.Device. The buffer contents are read into a
// CPU copy owned by the staging buffer.
func (d *Device) MapReadback(b gpu.StagingBuffer) (gpu.Mapping, error) {
	sb, ok := b.(*stagingBuffer)
	if !ok || sb.device != d {
		return gpu.Mapping{}, gpu.ErrForeignResource
	}
	if sb.data == nil {
		sb.data = make([]byte, sb.size)
	}
	if err := d.queue.ReadBuffer(sb.buf, 0, sb.data); err != nil {
		return gpu.Mapping{}, fmt.Errorf("wgpu: read staging buffer %q: %w", sb.desc.Label, err)
	}
	return gpu.Mapping{
		Data:        sb.data,
		Width:       sb.width,
		Height:      sb.height,
		BytesPerRow: sb.bytesPerRow,
		Format:      sb.format,
	}, nil
}

// UnmapReadback implements gpu.Device. The CPU copy is reused by the next
// MapReadback, so there is nothing to release.
func (d *Device) UnmapReadback(gpu.StagingBuffer) {}

// Pending returns the number of submissions whose fence has not been
// observed as signaled.
func (d *Device) Pending() int { return len(d.inflight) }
