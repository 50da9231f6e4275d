package shader

import (
	"fmt"

	"github.com/gogpu/bake/gpu"
	"github.com/gogpu/bake/material"
)

// Synthesize returns the expression a bake of p emits for material m under
// blend mode b.
//
// Lit channels are only meaningful for opaque and masked materials and
// evaluate to zero otherwise. Normal-like channels are brought into tangent
// space and remapped from [-1,1] to [0,1]. Single component channels are
// replicated across the color channels.
func Synthesize(m material.Material, p material.Property, b material.BlendMode) material.Expr {
	var e material.Expr
	switch p.Type {
	case material.EmissiveColor, material.BaseColor, material.Opacity, material.OpacityMask:
		e = input(m, p)

	case material.Specular, material.Roughness, material.Anisotropy, material.Metallic,
		material.AmbientOcclusion, material.CustomData0, material.CustomData1:
		if !b.IsOpaqueOrMasked() {
			return material.Scalar(0)
		}
		e = input(m, p)

	case material.Normal, material.Tangent:
		if !b.IsOpaqueOrMasked() {
			return material.Scalar(0)
		}
		return normalTransform(m, input(m, p))

	case material.ShadingModelID:
		// A connected input selects the model per pixel; otherwise the
		// material's own model is baked.
		if e := m.Input(p); e != nil {
			return material.Multiply{A: material.Channel{X: e, Index: 0}, B: material.Scalar(1.0 / 255)}
		}
		return material.Scalar(float32(m.ShadingModel()) / 255)

	case material.WorldPositionOffset:
		return material.Scalar(0)

	case material.CustomOutput:
		e = m.Input(p)
		if e == nil {
			return material.Constant{V: material.DefaultValue(p)}
		}
		if p.IsCustom(material.ClearCoatBottomNormalOutput) {
			return normalTransform(m, e)
		}

	default:
		return material.Scalar(1)
	}

	if material.Kind(p) == material.Float1 {
		return material.Channel{X: e, Index: 0}
	}
	return e
}

// input returns the expression connected to p or its default value.
func input(m material.Material, p material.Property) material.Expr {
	if e := m.Input(p); e != nil {
		return e
	}
	return material.Constant{V: material.DefaultValue(p)}
}

// normalTransform converts a world space vector into the tangent frame when
// the material authors normals in world space, then maps it into [0,1].
func normalTransform(m material.Material, e material.Expr) material.Expr {
	if !m.TangentSpaceNormal() {
		e = TangentSpace{X: e}
	}
	half := material.Scalar(0.5)
	return material.Add{A: material.Multiply{A: e, B: half}, B: half}
}

// TangentSpace projects the xyz of a world space vector onto the
// interpolated tangent frame.
type TangentSpace struct {
	X material.Expr
}

func (t TangentSpace) WGSL() string {
	v := "(" + t.X.WGSL() + ").xyz"
	return fmt.Sprintf("vec4<f32>(dot(%[1]s, in.tangent_x), dot(%[1]s, in.tangent_y), dot(%[1]s, in.tangent_z), 0.0)", v)
}

func (t TangentSpace) Eval(f *gpu.Fragment) material.Value {
	v := t.X.Eval(f)
	dot := func(a [3]float32) float32 { return v[0]*a[0] + v[1]*a[1] + v[2]*a[2] }
	return material.Value{dot(f.TangentX), dot(f.TangentY), dot(f.TangentZ), 0}
}

// FragmentFunc returns the CPU evaluator of a synthesized expression. The
// output alpha is always zero: covered pixels are distinguished from holes
// by their alpha.
func FragmentFunc(e material.Expr) gpu.FragmentFunc {
	return func(f *gpu.Fragment) [4]float32 {
		v := e.Eval(f)
		return [4]float32{v[0], v[1], v[2], 0}
	}
}
