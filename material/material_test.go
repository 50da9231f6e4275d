package material

import (
	"strings"
	"testing"

	"github.com/gogpu/bake/gpu"
)

// =============================================================================
// Property Tests
// =============================================================================

func TestProperty_CustomNamesFoldCase(t *testing.T) {
	a := Custom("ClearCoatBottomNormal")
	b := Custom("clearcoatbottomnormal")

	if !a.Equal(b) {
		t.Errorf("%v and %v should be equal", a, b)
	}
	if a.Key() != b.Key() {
		t.Errorf("Key() differs: %v vs %v", a.Key(), b.Key())
	}
	if a.String() != "ClearCoatBottomNormal" {
		t.Errorf("String() = %q, want original spelling", a.String())
	}
}

func TestProperty_BuiltinIgnoresName(t *testing.T) {
	a := Property{Type: BaseColor, Name: "ignored"}
	if !a.Equal(Builtin(BaseColor)) {
		t.Error("built-in properties should compare by type only")
	}
}

func TestProperty_String(t *testing.T) {
	tests := []struct {
		p    Property
		want string
	}{
		{Builtin(BaseColor), "BaseColor"},
		{Builtin(ShadingModelID), "ShadingModel"},
		{Builtin(EmissiveColor), "EmissiveColor"},
		{Custom("Sheen"), "Sheen"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseProperty(t *testing.T) {
	tests := []struct {
		in   string
		want Property
	}{
		{"basecolor", Builtin(BaseColor)},
		{"Normal", Builtin(Normal)},
		{"ShadingModel", Builtin(ShadingModelID)},
		{"MyOutput", Custom("MyOutput")},
	}
	for _, tt := range tests {
		if got := ParseProperty(tt.in); !got.Equal(tt.want) {
			t.Errorf("ParseProperty(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestProperty_IsNormalLike(t *testing.T) {
	if !Builtin(Normal).IsNormalLike() {
		t.Error("Normal should be normal-like")
	}
	if !Custom("clearCoatBottomNormal").IsNormalLike() {
		t.Error("ClearCoatBottomNormal should be normal-like")
	}
	if Builtin(BaseColor).IsNormalLike() {
		t.Error("BaseColor should not be normal-like")
	}
}

// =============================================================================
// Blend Mode Tests
// =============================================================================

func TestWillFillData(t *testing.T) {
	tests := []struct {
		blend BlendMode
		p     PropertyType
		want  bool
	}{
		{BlendTranslucent, EmissiveColor, true},
		{BlendOpaque, BaseColor, true},
		{BlendOpaque, Roughness, true},
		{BlendOpaque, AmbientOcclusion, true},
		{BlendOpaque, Opacity, false},
		{BlendMasked, BaseColor, false},
		{BlendTranslucent, BaseColor, false},
	}
	for _, tt := range tests {
		if got := WillFillData(tt.blend, Builtin(tt.p)); got != tt.want {
			t.Errorf("WillFillData(%v, %v) = %v, want %v", tt.blend, tt.p, got, tt.want)
		}
	}
}

func TestParseBlendMode(t *testing.T) {
	b, ok := ParseBlendMode("masked")
	if !ok || b != BlendMasked {
		t.Errorf("ParseBlendMode(masked) = %v, %v", b, ok)
	}
	if _, ok := ParseBlendMode("nope"); ok {
		t.Error("unknown blend mode should not parse")
	}
}

func TestShadingModelName(t *testing.T) {
	if got := ShadingModelName(ShadingClearCoat); got != "ClearCoat" {
		t.Errorf("ShadingModelName = %q", got)
	}
	if got := ShadingModelName(ShadingModel(200)); got != "Unknown" {
		t.Errorf("ShadingModelName(200) = %q", got)
	}
}

// =============================================================================
// Graph Tests
// =============================================================================

func TestGraph_InstanceInheritsInputs(t *testing.T) {
	base := New("base", "Base")
	base.SetInput(Builtin(BaseColor), RGB(1, 0, 0))
	base.SetInput(Builtin(Roughness), Scalar(0.25))

	inst := NewInstance("inst", "Instance", base)
	inst.SetInput(Builtin(BaseColor), RGB(0, 1, 0))

	f := &gpu.Fragment{}
	if got := inst.Input(Builtin(BaseColor)).Eval(f); got != (Value{0, 1, 0, 1}) {
		t.Errorf("override BaseColor = %v", got)
	}
	if got := inst.Input(Builtin(Roughness)).Eval(f); got != Splat(0.25) {
		t.Errorf("inherited Roughness = %v", got)
	}
	if inst.Input(Builtin(Metallic)) != nil {
		t.Error("unconnected input should be nil")
	}
}

func TestChainAndDependsOn(t *testing.T) {
	root := New("root", "Root")
	mid := NewInstance("mid", "Mid", root)
	leaf := NewInstance("leaf", "Leaf", mid)

	chain := Chain(leaf)
	want := []ID{"leaf", "mid", "root"}
	if len(chain) != len(want) {
		t.Fatalf("Chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("Chain[%d] = %q, want %q", i, chain[i], want[i])
		}
	}

	if !DependsOn(leaf, "root") {
		t.Error("leaf should depend on root")
	}
	if DependsOn(mid, "leaf") {
		t.Error("mid should not depend on leaf")
	}
}

// =============================================================================
// Expression Tests
// =============================================================================

func TestExpr_EvalMatchesInputs(t *testing.T) {
	f := &gpu.Fragment{Color: [4]float32{0.5, 0.25, 1, 1}}
	f.TexCoords[1] = [2]float32{0.75, 0.5}
	f.TexCoords[gpu.PositionXYSlot] = [2]float32{10, 20}
	f.TexCoords[gpu.PositionZSlot] = [2]float32{30, 0}
	f.TangentZ = [3]float32{0, 0, 1}

	tests := []struct {
		name string
		e    Expr
		want Value
	}{
		{"constant", Scalar(2), Splat(2)},
		{"texcoord", TexCoord{Index: 1}, Value{0.75, 0.5, 0, 0}},
		{"color", VertexColor{}, Value{0.5, 0.25, 1, 1}},
		{"position", WorldPosition{}, Value{10, 20, 30, 0}},
		{"normal", VertexNormal{}, Value{0, 0, 1, 0}},
		{"add", Add{Scalar(1), Scalar(2)}, Splat(3)},
		{"multiply", Multiply{VertexColor{}, Scalar(2)}, Value{1, 0.5, 2, 2}},
		{"lerp", Lerp{Scalar(0), Scalar(4), Scalar(0.25)}, Splat(1)},
		{"saturate", Saturate{Constant{V: Value{-1, 0.5, 2, 1}}}, Value{0, 0.5, 1, 1}},
		{"fract", Fract{Scalar(2.25)}, Splat(0.25)},
		{"channel", Channel{X: VertexColor{}, Index: 1}, Splat(0.25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.Eval(f); got != tt.want {
				t.Errorf("Eval = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpr_WGSL(t *testing.T) {
	tests := []struct {
		e    Expr
		want string
	}{
		{Scalar(1), "vec4<f32>(1.0, 1.0, 1.0, 1.0)"},
		{Constant{V: Value{0.5, -2, 0, 3}}, "vec4<f32>(0.5, -2.0, 0.0, 3.0)"},
		{TexCoord{Index: 2}, "vec4<f32>(in.uv2, 0.0, 0.0)"},
		{VertexColor{}, "in.color"},
		{WorldPosition{}, "vec4<f32>(in.uv6, in.uv7.x, 0.0)"},
		{Channel{X: VertexColor{}, Index: 3}, "vec4<f32>((in.color).w)"},
	}
	for _, tt := range tests {
		if got := tt.e.WGSL(); got != tt.want {
			t.Errorf("WGSL() = %q, want %q", got, tt.want)
		}
	}

	nested := Lerp{A: Scalar(0), B: VertexColor{}, T: Saturate{X: TexCoord{}}}.WGSL()
	if !strings.HasPrefix(nested, "mix(") || !strings.Contains(nested, "clamp(") {
		t.Errorf("nested WGSL = %q", nested)
	}
}

func TestDefaultValueAndKind(t *testing.T) {
	if got := DefaultValue(Builtin(Normal)); got != (Value{0, 0, 1, 0}) {
		t.Errorf("DefaultValue(Normal) = %v", got)
	}
	if got := DefaultValue(Builtin(Specular)); got != Splat(0.5) {
		t.Errorf("DefaultValue(Specular) = %v", got)
	}
	if Kind(Builtin(Roughness)) != Float1 {
		t.Error("Roughness should be scalar")
	}
	if Kind(Builtin(BaseColor)) != Float3 {
		t.Error("BaseColor should be a three component value")
	}
	if Kind(Custom("x")) != Float3 {
		t.Error("custom outputs should be three component values")
	}
}
