// Package bake renders procedural material properties into fixed-size pixel
// buffers.
//
// # Overview
//
// A bake takes a material, a list of properties with the resolution each
// should be rendered at, and an optional UV-mapped mesh. Every property is
// drawn in UV space into a render target, copied back to the CPU and
// post-processed into 8-bit RGBA texels. Texels the mesh does not cover are
// dilated from their neighbors so filtering across UV seams stays clean.
//
// # Quick Start
//
//	b, err := bake.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	m := material.New("brick", "Brick").
//	    SetInput(material.Builtin(material.BaseColor), material.RGB(0.6, 0.2, 0.1))
//
//	out, err := b.Bake(ctx, []bake.Job{{
//	    Material:    m,
//	    BorderSmear: true,
//	    Properties: []bake.PropertySize{
//	        {Property: material.Builtin(material.BaseColor), Size: bake.Size{Width: 256, Height: 256}},
//	    },
//	}}, []*bake.MeshSource{nil})
//
// # Devices
//
// Rendering goes through gpu.Device. Without WithDevice a Baker rasterizes
// on the CPU with gpu/software. gpu/wgpu renders through a gogpu/wgpu hal
// device, either opened directly or shared with a host application.
//
// # Pipelining
//
// Device work runs on a dedicated render goroutine. Up to WithPipelineDepth
// submissions stay in flight before the oldest is read back, and read-backs
// are converted, smeared and encoded on a worker pool while the next
// submissions are drawn. Geometry for upcoming jobs and shader compilation
// run on the same pool ahead of need.
//
// # Emissive
//
// Emissive color is rendered into a half-float target and normalized by its
// brightest texel. PropertyOutput.EmissiveScale restores the original range.
package bake
