package bake

import (
	"image/color"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/bake/material"
	"github.com/gogpu/bake/mesh"
)

// Size is a pixel extent.
type Size = mesh.Size

// MeshSource selects the surface a job is baked on. A nil source or one
// without a mesh bakes a quad covering the whole target.
type MeshSource = mesh.Source

// PropertySize requests one property at one resolution.
type PropertySize struct {
	Property material.Property
	Size     Size
}

// Job is one material to bake.
type Job struct {
	Material  material.Material
	BlendMode material.BlendMode

	// BorderSmear dilates rendered texels into unwritten ones and shrinks
	// single color results to one texel.
	BorderSmear bool

	// Properties are baked in order. When a property appears more than
	// once the first entry wins.
	Properties []PropertySize

	// forceLinear renders every property into a linear target.
	forceLinear bool
}

// properties returns Properties without repeated entries.
func (j *Job) properties() []PropertySize {
	seen := make(map[material.PropertyKey]struct{}, len(j.Properties))
	out := make([]PropertySize, 0, len(j.Properties))
	for _, ps := range j.Properties {
		k := ps.Property.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ps)
	}
	return out
}

// Output holds the results of one job, in the order of its properties.
type Output struct {
	Properties []PropertyOutput
}

// Lookup returns the result for p.
func (o *Output) Lookup(p material.Property) (*PropertyOutput, bool) {
	for i := range o.Properties {
		if o.Properties[i].Property.Equal(p) {
			return &o.Properties[i], true
		}
	}
	return nil, false
}

// PropertyOutput is a baked property.
//
// Pixels holds Size.Width*Size.Height texels row by row. A property that
// was not baked has an empty buffer and a zero Size.
type PropertyOutput struct {
	Property material.Property
	Pixels   []color.RGBA
	Size     Size

	// IsConstant is set when the result is a single texel, or when border
	// smear found a single rendered color and filled the buffer with it.
	// ConstantValue then holds that color.
	IsConstant    bool
	ConstantValue color.RGBA

	// EmissiveScale reconstructs emissive radiance as Pixels/255 times the
	// scale. It is 1 for every other property.
	EmissiveScale float32
}

// renderSettings returns the target format and gamma mode a property is
// rendered with.
func renderSettings(p material.Property) (gputypes.TextureFormat, bool) {
	switch {
	case p.Type == material.EmissiveColor:
		return gputypes.TextureFormatRGBA16Float, false
	case p.Type == material.Normal,
		p.Type == material.Opacity,
		p.Type == material.OpacityMask,
		p.Type == material.ShadingModelID,
		p.IsCustom(material.ClearCoatBottomNormalOutput):
		return gputypes.TextureFormatBGRA8Unorm, true
	}
	return gputypes.TextureFormatBGRA8Unorm, false
}

// clampSize limits each axis to [1, limit].
func clampSize(s Size, limit int) Size {
	return Size{
		Width:  max(1, min(s.Width, limit)),
		Height: max(1, min(s.Height, limit)),
	}
}
