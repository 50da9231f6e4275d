package material

// ValueKind is the number of meaningful components of a channel.
type ValueKind uint8

// Value kinds.
const (
	Float1 ValueKind = 1
	Float2 ValueKind = 2
	Float3 ValueKind = 3
)

var propertyDefaults = map[PropertyType]Value{
	EmissiveColor:       {0, 0, 0, 0},
	Opacity:             Splat(1),
	OpacityMask:         Splat(1),
	DiffuseColor:        {0, 0, 0, 0},
	SpecularColor:       {0, 0, 0, 0},
	BaseColor:           {0, 0, 0, 0},
	Metallic:            Splat(0),
	Specular:            Splat(0.5),
	Roughness:           Splat(0.5),
	Anisotropy:          Splat(0),
	Normal:              {0, 0, 1, 0},
	Tangent:             {1, 0, 0, 0},
	WorldPositionOffset: {0, 0, 0, 0},
	SubsurfaceColor:     {1, 1, 1, 0},
	CustomData0:         Splat(1),
	CustomData1:         Splat(0.1),
	AmbientOcclusion:    Splat(1),
	Refraction:          {1, 0, 0, 0},
	PixelDepthOffset:    Splat(0),
	ShadingModelID:      Splat(0),
	CustomOutput:        {0, 0, 0, 0},
}

// DefaultValue returns the value an unconnected input evaluates to.
func DefaultValue(p Property) Value {
	if v, ok := propertyDefaults[p.Type]; ok {
		return v
	}
	return Value{}
}

// Kind returns the component count of the channel p. Custom outputs are
// treated as three component values.
func Kind(p Property) ValueKind {
	switch p.Type {
	case Opacity, OpacityMask, Metallic, Specular, Roughness, Anisotropy,
		CustomData0, CustomData1, AmbientOcclusion, PixelDepthOffset, ShadingModelID:
		return Float1
	case Refraction:
		return Float2
	}
	return Float3
}
