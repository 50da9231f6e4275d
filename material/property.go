package material

import (
	"golang.org/x/text/cases"
)

// PropertyType identifies a built-in material channel.
type PropertyType uint8

// Built-in material channels.
const (
	EmissiveColor PropertyType = iota
	Opacity
	OpacityMask
	DiffuseColor
	SpecularColor
	BaseColor
	Metallic
	Specular
	Roughness
	Anisotropy
	Normal
	Tangent
	WorldPositionOffset
	SubsurfaceColor
	CustomData0
	CustomData1
	AmbientOcclusion
	Refraction
	PixelDepthOffset
	ShadingModelID
	CustomOutput
)

var propertyTypeNames = [...]string{
	EmissiveColor:       "EmissiveColor",
	Opacity:             "Opacity",
	OpacityMask:         "OpacityMask",
	DiffuseColor:        "DiffuseColor",
	SpecularColor:       "SpecularColor",
	BaseColor:           "BaseColor",
	Metallic:            "Metallic",
	Specular:            "Specular",
	Roughness:           "Roughness",
	Anisotropy:          "Anisotropy",
	Normal:              "Normal",
	Tangent:             "Tangent",
	WorldPositionOffset: "WorldPositionOffset",
	SubsurfaceColor:     "SubsurfaceColor",
	CustomData0:         "CustomData0",
	CustomData1:         "CustomData1",
	AmbientOcclusion:    "AmbientOcclusion",
	Refraction:          "Refraction",
	PixelDepthOffset:    "PixelDepthOffset",
	ShadingModelID:      "ShadingModel",
	CustomOutput:        "CustomOutput",
}

// String returns the channel name.
func (t PropertyType) String() string {
	if int(t) < len(propertyTypeNames) {
		return propertyTypeNames[t]
	}
	return "Unknown"
}

// ClearCoatBottomNormalOutput is the custom output that carries the bottom
// normal of a clear-coat material. It is baked like Normal.
const ClearCoatBottomNormalOutput = "ClearCoatBottomNormal"

// Property names a bakeable value: either a built-in channel or a named
// custom output. Custom output names compare case-insensitively; use Key
// when a Property must be used as a map key.
type Property struct {
	Type PropertyType
	Name string
}

// PropertyKey is the comparable identity of a Property.
type PropertyKey struct {
	Type PropertyType
	Name string
}

// Builtin returns the property for a built-in channel.
func Builtin(t PropertyType) Property {
	return Property{Type: t}
}

// Custom returns the property for a named custom output.
func Custom(name string) Property {
	return Property{Type: CustomOutput, Name: name}
}

var nameFolder = cases.Fold()

// Key returns the identity used for hashing and equality.
func (p Property) Key() PropertyKey {
	if p.Type != CustomOutput {
		return PropertyKey{Type: p.Type}
	}
	return PropertyKey{Type: CustomOutput, Name: nameFolder.String(p.Name)}
}

// Equal reports whether p and other name the same property.
func (p Property) Equal(other Property) bool {
	return p.Key() == other.Key()
}

// IsCustom reports whether p is the named custom output.
func (p Property) IsCustom(name string) bool {
	return p.Type == CustomOutput && p.Key().Name == nameFolder.String(name)
}

// IsNormalLike reports whether the property holds a direction that is baked
// into the [0,1] tangent-space range.
func (p Property) IsNormalLike() bool {
	return p.Type == Normal || p.Type == Tangent || p.IsCustom(ClearCoatBottomNormalOutput)
}

// String returns the channel name, or the custom output name.
func (p Property) String() string {
	if p.Type == CustomOutput {
		return p.Name
	}
	return p.Type.String()
}

// ParseProperty resolves a channel name. Unknown names become custom outputs.
func ParseProperty(s string) Property {
	folded := nameFolder.String(s)
	for i, name := range propertyTypeNames {
		if PropertyType(i) == CustomOutput {
			continue
		}
		if nameFolder.String(name) == folded {
			return Builtin(PropertyType(i))
		}
	}
	return Custom(s)
}
