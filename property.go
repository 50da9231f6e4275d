package bake

import (
	"context"

	"github.com/gogpu/bake/material"
	"github.com/gogpu/bake/postprocess"
)

// AlphaMode selects the alpha channel of a BakeProperty result.
type AlphaMode uint8

const (
	// AlphaOpaque sets every alpha to 255.
	AlphaOpaque AlphaMode = iota

	// AlphaFromRed copies the red channel into alpha, for packing a scalar
	// property next to a color one.
	AlphaFromRed
)

// PropertyRequest bakes a single property with export-ready alpha.
type PropertyRequest struct {
	Material  material.Material
	BlendMode material.BlendMode
	Property  material.Property
	Size      Size

	// Source is the surface to bake on. Nil bakes a full quad.
	Source *MeshSource

	Alpha AlphaMode

	// TargetGamma, when positive, renders into a linear target and then
	// encodes the result with 1/TargetGamma on the CPU.
	TargetGamma float32
}

// BakeProperty bakes one property with border smear enabled.
//
// Baked alpha is 0 for rendered texels, so the result gets an explicit
// alpha policy. Normal-like properties have their green channel flipped to
// the +Y convention used by glTF.
func (b *Baker) BakeProperty(ctx context.Context, req PropertyRequest) (PropertyOutput, error) {
	if req.Material == nil {
		return PropertyOutput{}, ErrNoMaterial
	}
	job := Job{
		Material:    req.Material,
		BlendMode:   req.BlendMode,
		BorderSmear: true,
		Properties:  []PropertySize{{Property: req.Property, Size: req.Size}},
		forceLinear: req.TargetGamma > 0,
	}
	outs, err := b.Bake(ctx, []Job{job}, []*MeshSource{req.Source})
	if err != nil {
		return PropertyOutput{}, err
	}

	out := outs[0].Properties[0]
	if req.TargetGamma > 0 {
		postprocess.ApplyGamma(out.Pixels, req.TargetGamma)
	}
	switch req.Alpha {
	case AlphaFromRed:
		postprocess.CopyRedToAlpha(out.Pixels)
	default:
		postprocess.SetAlphaOpaque(out.Pixels)
	}
	if req.Property.IsNormalLike() {
		postprocess.FlipGreen(out.Pixels)
	}
	if out.IsConstant {
		out.ConstantValue = out.Pixels[0]
	}
	return out, nil
}
