package shader

import (
	"fmt"
	"strings"

	"github.com/gogpu/bake/gpu"
	"github.com/gogpu/bake/material"
)

// Entry points of synthesized modules.
const (
	VertexEntryPoint   = gpu.VertexEntryPoint
	FragmentEntryPoint = gpu.FragmentEntryPoint
)

// vertexStage is shared by all bake modules. Positions arrive in normalized
// device coordinates and every attribute is forwarded to the fragment stage
// unchanged.
var vertexStage = buildVertexStage()

func buildVertexStage() string {
	var b strings.Builder

	b.WriteString("struct VertexInput {\n")
	fmt.Fprintf(&b, "    @location(%d) position: vec3<f32>,\n", gpu.LocationPosition)
	fmt.Fprintf(&b, "    @location(%d) tangent_x: vec3<f32>,\n", gpu.LocationTangentX)
	fmt.Fprintf(&b, "    @location(%d) tangent_y: vec3<f32>,\n", gpu.LocationTangentY)
	fmt.Fprintf(&b, "    @location(%d) tangent_z: vec3<f32>,\n", gpu.LocationTangentZ)
	fmt.Fprintf(&b, "    @location(%d) color: vec4<f32>,\n", gpu.LocationColor)
	for i := range gpu.MaxTexCoords {
		fmt.Fprintf(&b, "    @location(%d) uv%d: vec2<f32>,\n", gpu.LocationTexCoord+i, i)
	}
	b.WriteString("}\n\n")

	b.WriteString("struct FragmentInput {\n")
	b.WriteString("    @builtin(position) clip_position: vec4<f32>,\n")
	b.WriteString("    @location(0) tangent_x: vec3<f32>,\n")
	b.WriteString("    @location(1) tangent_y: vec3<f32>,\n")
	b.WriteString("    @location(2) tangent_z: vec3<f32>,\n")
	b.WriteString("    @location(3) color: vec4<f32>,\n")
	for i := range gpu.MaxTexCoords {
		fmt.Fprintf(&b, "    @location(%d) uv%d: vec2<f32>,\n", 4+i, i)
	}
	b.WriteString("}\n\n")

	b.WriteString("@vertex\n")
	fmt.Fprintf(&b, "fn %s(v: VertexInput) -> FragmentInput {\n", VertexEntryPoint)
	b.WriteString("    var out: FragmentInput;\n")
	b.WriteString("    out.clip_position = vec4<f32>(v.position.x, v.position.y, 0.0, 1.0);\n")
	b.WriteString("    out.tangent_x = v.tangent_x;\n")
	b.WriteString("    out.tangent_y = v.tangent_y;\n")
	b.WriteString("    out.tangent_z = v.tangent_z;\n")
	b.WriteString("    out.color = v.color;\n")
	for i := range gpu.MaxTexCoords {
		fmt.Fprintf(&b, "    out.uv%d = v.uv%d;\n", i, i)
	}
	b.WriteString("    return out;\n")
	b.WriteString("}\n")
	return b.String()
}

// Module returns a complete WGSL module whose fragment stage writes e.
func Module(e material.Expr) string {
	var b strings.Builder
	b.WriteString(vertexStage)
	b.WriteString("\n@fragment\n")
	fmt.Fprintf(&b, "fn %s(in: FragmentInput) -> @location(0) vec4<f32> {\n", FragmentEntryPoint)
	fmt.Fprintf(&b, "    let value = %s;\n", e.WGSL())
	b.WriteString("    return vec4<f32>(value.x, value.y, value.z, 0.0);\n")
	b.WriteString("}\n")
	return b.String()
}
