package material

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"

	"github.com/gogpu/bake/gpu"
)

// Value is a four component expression result.
type Value [4]float32

// Splat returns a value with every component set to v.
func Splat(v float32) Value {
	return Value{v, v, v, v}
}

// Expr is a node of a material expression graph. Every node has a WGSL
// form, a vec4<f32> expression over the fragment input named "in", and a
// CPU form used by software devices. Both must agree.
type Expr interface {
	WGSL() string
	Eval(f *gpu.Fragment) Value
}

// Constant is a literal value.
type Constant struct {
	V Value
}

// Scalar returns a constant with v in every component.
func Scalar(v float32) Constant {
	return Constant{V: Splat(v)}
}

// RGB returns an opaque color constant.
func RGB(r, g, b float32) Constant {
	return Constant{V: Value{r, g, b, 1}}
}

func (c Constant) WGSL() string {
	return fmt.Sprintf("vec4<f32>(%s, %s, %s, %s)",
		wgslFloat(c.V[0]), wgslFloat(c.V[1]), wgslFloat(c.V[2]), wgslFloat(c.V[3]))
}

func (c Constant) Eval(*gpu.Fragment) Value { return c.V }

// TexCoord reads a UV channel into xy.
type TexCoord struct {
	Index int
}

func (t TexCoord) WGSL() string {
	return fmt.Sprintf("vec4<f32>(in.uv%d, 0.0, 0.0)", t.clamped())
}

func (t TexCoord) Eval(f *gpu.Fragment) Value {
	uv := f.TexCoords[t.clamped()]
	return Value{uv[0], uv[1], 0, 0}
}

func (t TexCoord) clamped() int {
	return min(max(t.Index, 0), gpu.MaxUVChannels-1)
}

// VertexColor reads the interpolated vertex color.
type VertexColor struct{}

func (VertexColor) WGSL() string { return "in.color" }

func (VertexColor) Eval(f *gpu.Fragment) Value { return Value(f.Color) }

// WorldPosition reads the surface position into xyz.
type WorldPosition struct{}

func (WorldPosition) WGSL() string {
	return fmt.Sprintf("vec4<f32>(in.uv%d, in.uv%d.x, 0.0)", gpu.PositionXYSlot, gpu.PositionZSlot)
}

func (WorldPosition) Eval(f *gpu.Fragment) Value {
	p := f.WorldPosition()
	return Value{p[0], p[1], p[2], 0}
}

// VertexNormal reads the interpolated world space normal into xyz.
type VertexNormal struct{}

func (VertexNormal) WGSL() string { return "vec4<f32>(in.tangent_z, 0.0)" }

func (VertexNormal) Eval(f *gpu.Fragment) Value {
	n := f.TangentZ
	return Value{n[0], n[1], n[2], 0}
}

// Add is the component-wise sum of A and B.
type Add struct {
	A, B Expr
}

func (a Add) WGSL() string {
	return "(" + a.A.WGSL() + " + " + a.B.WGSL() + ")"
}

func (a Add) Eval(f *gpu.Fragment) Value {
	x, y := a.A.Eval(f), a.B.Eval(f)
	return Value{x[0] + y[0], x[1] + y[1], x[2] + y[2], x[3] + y[3]}
}

// Multiply is the component-wise product of A and B.
type Multiply struct {
	A, B Expr
}

func (m Multiply) WGSL() string {
	return "(" + m.A.WGSL() + " * " + m.B.WGSL() + ")"
}

func (m Multiply) Eval(f *gpu.Fragment) Value {
	x, y := m.A.Eval(f), m.B.Eval(f)
	return Value{x[0] * y[0], x[1] * y[1], x[2] * y[2], x[3] * y[3]}
}

// Lerp blends A towards B by T per component.
type Lerp struct {
	A, B, T Expr
}

func (l Lerp) WGSL() string {
	return "mix(" + l.A.WGSL() + ", " + l.B.WGSL() + ", " + l.T.WGSL() + ")"
}

func (l Lerp) Eval(f *gpu.Fragment) Value {
	a, b, t := l.A.Eval(f), l.B.Eval(f), l.T.Eval(f)
	var out Value
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*t[i]
	}
	return out
}

// Saturate clamps X to [0,1].
type Saturate struct {
	X Expr
}

func (s Saturate) WGSL() string {
	return "clamp(" + s.X.WGSL() + ", vec4<f32>(0.0), vec4<f32>(1.0))"
}

func (s Saturate) Eval(f *gpu.Fragment) Value {
	v := s.X.Eval(f)
	for i := range v {
		v[i] = math32.Min(math32.Max(v[i], 0), 1)
	}
	return v
}

// Fract keeps the fractional part of X.
type Fract struct {
	X Expr
}

func (fr Fract) WGSL() string {
	return "fract(" + fr.X.WGSL() + ")"
}

func (fr Fract) Eval(f *gpu.Fragment) Value {
	v := fr.X.Eval(f)
	for i := range v {
		v[i] -= math32.Floor(v[i])
	}
	return v
}

// Channel broadcasts one component of X to all four.
type Channel struct {
	X     Expr
	Index int
}

func (c Channel) WGSL() string {
	return fmt.Sprintf("vec4<f32>((%s).%c)", c.X.WGSL(), "xyzw"[c.clamped()])
}

func (c Channel) Eval(f *gpu.Fragment) Value {
	return Splat(c.X.Eval(f)[c.clamped()])
}

func (c Channel) clamped() int {
	return min(max(c.Index, 0), 3)
}

// wgslFloat formats v as a WGSL f32 literal.
func wgslFloat(v float32) string {
	if math32.IsInf(v, 0) || math32.IsNaN(v) {
		return "0.0"
	}
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
