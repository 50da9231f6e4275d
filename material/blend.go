package material

// BlendMode is the blend mode a material is baked with.
type BlendMode uint8

// Blend modes.
const (
	BlendOpaque BlendMode = iota
	BlendMasked
	BlendTranslucent
	BlendAdditive
	BlendModulate
	BlendAlphaComposite
	BlendAlphaHoldout
)

var blendModeNames = [...]string{
	BlendOpaque:         "Opaque",
	BlendMasked:         "Masked",
	BlendTranslucent:    "Translucent",
	BlendAdditive:       "Additive",
	BlendModulate:       "Modulate",
	BlendAlphaComposite: "AlphaComposite",
	BlendAlphaHoldout:   "AlphaHoldout",
}

func (b BlendMode) String() string {
	if int(b) < len(blendModeNames) {
		return blendModeNames[b]
	}
	return "Unknown"
}

// ParseBlendMode resolves a blend mode name, falling back to opaque.
func ParseBlendMode(s string) (BlendMode, bool) {
	for i, name := range blendModeNames {
		if nameFolder.String(name) == nameFolder.String(s) {
			return BlendMode(i), true
		}
	}
	return BlendOpaque, false
}

// IsOpaqueOrMasked reports whether the blend mode writes a full set of
// surface attributes.
func (b BlendMode) IsOpaqueOrMasked() bool {
	return b == BlendOpaque || b == BlendMasked
}

// WillFillData reports whether baking p with blend mode b is known to
// produce surface data. Emissive always does; the lit channels only do for
// opaque materials.
func WillFillData(b BlendMode, p Property) bool {
	if p.Type == EmissiveColor {
		return true
	}
	if b != BlendOpaque {
		return false
	}
	switch p.Type {
	case BaseColor, Specular, Normal, Tangent, Metallic, Roughness, Anisotropy, AmbientOcclusion:
		return true
	}
	return false
}

// ShadingModel is the lighting model of a material.
type ShadingModel uint8

// Shading models.
const (
	ShadingUnlit ShadingModel = iota
	ShadingDefaultLit
	ShadingSubsurface
	ShadingPreintegratedSkin
	ShadingClearCoat
	ShadingSubsurfaceProfile
	ShadingTwoSidedFoliage
	ShadingHair
	ShadingCloth
	ShadingEye
	ShadingSingleLayerWater
	ShadingThinTranslucent
)

var shadingModelNames = [...]string{
	ShadingUnlit:             "Unlit",
	ShadingDefaultLit:        "DefaultLit",
	ShadingSubsurface:        "Subsurface",
	ShadingPreintegratedSkin: "PreintegratedSkin",
	ShadingClearCoat:         "ClearCoat",
	ShadingSubsurfaceProfile: "SubsurfaceProfile",
	ShadingTwoSidedFoliage:   "TwoSidedFoliage",
	ShadingHair:              "Hair",
	ShadingCloth:             "Cloth",
	ShadingEye:               "Eye",
	ShadingSingleLayerWater:  "SingleLayerWater",
	ShadingThinTranslucent:   "ThinTranslucent",
}

// ShadingModelName returns a display name for a shading model value.
func ShadingModelName(m ShadingModel) string {
	if int(m) < len(shadingModelNames) {
		return shadingModelNames[m]
	}
	return "Unknown"
}

// ShadingModelFromValue decodes a baked shading model channel (value/255)
// back into the enum.
func ShadingModelFromValue(v uint8) ShadingModel {
	return ShadingModel(v)
}
