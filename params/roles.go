package params

// Master holds the global visual state every section and role derives from.
type Master struct {
	Intensity  float64
	Speed      float64
	Density    float64
	Dimension  float64
	Complexity float64
	Coherence  float64
}

// DefaultMaster is the master state surfaces start from.
var DefaultMaster = Master{
	Intensity:  0.8,
	Speed:      1.0,
	Density:    1.0,
	Dimension:  3.5,
	Complexity: 0.5,
	Coherence:  1.0,
}

// Section scales the master state for one face.
type Section struct {
	Name          string
	IntensityMod  float64
	SpeedMod      float64
	DensityMod    float64
	ComplexityMod float64
	Geometry      Geometry
	BaseColor     [3]float64
}

// Sections is indexed by face. Faces past the end use section 0.
var Sections = []Section{
	{Name: "home", IntensityMod: 1.0, SpeedMod: 1.0, DensityMod: 1.0, ComplexityMod: 1.0,
		Geometry: Hypercube, BaseColor: [3]float64{1, 0, 1}},
	{Name: "tech", IntensityMod: 0.8, SpeedMod: 0.6, DensityMod: 0.7, ComplexityMod: 0.4,
		Geometry: Tetrahedron, BaseColor: [3]float64{0, 1, 1}},
	{Name: "media", IntensityMod: 1.3, SpeedMod: 1.4, DensityMod: 1.2, ComplexityMod: 1.1,
		Geometry: Sphere, BaseColor: [3]float64{1, 1, 0}},
	{Name: "audio", IntensityMod: 0.9, SpeedMod: 1.1, DensityMod: 0.8, ComplexityMod: 0.9,
		Geometry: Torus, BaseColor: [3]float64{0, 1, 0}},
	{Name: "quantum", IntensityMod: 1.5, SpeedMod: 1.2, DensityMod: 1.4, ComplexityMod: 1.3,
		Geometry: Wave, BaseColor: [3]float64{1, 0, 0.5}},
}

// ColorOp transforms a section color for a role.
type ColorOp int

// Color operations.
const (
	ColorBase ColorOp = iota
	ColorDarken
	ColorBrighten
	ColorComplement
)

// Apply transforms c.
func (op ColorOp) Apply(c [3]float64) [3]float64 {
	var out [3]float64
	for i, v := range c {
		switch op {
		case ColorDarken:
			out[i] = v * 0.7
		case ColorBrighten:
			out[i] = min(1, v*1.3)
		case ColorComplement:
			out[i] = 1 - v
		default:
			out[i] = v
		}
	}
	return out
}

// RoleModifier scales section parameters for one visual layer.
type RoleModifier struct {
	GridScale              float64
	MorphScale             float64
	RotationScale          float64
	DimensionBoost         float64
	InteractionSensitivity float64
	Color                  ColorOp
}

// RoleModifiers maps visual layer names to their modifiers.
var RoleModifiers = map[string]RoleModifier{
	"background": {GridScale: 0.4, MorphScale: 0.2, RotationScale: 0.3, DimensionBoost: -0.2, InteractionSensitivity: 0.3, Color: ColorBase},
	"shadow":     {GridScale: 0.8, MorphScale: 0.3, RotationScale: 0.5, DimensionBoost: -0.1, InteractionSensitivity: 0.5, Color: ColorDarken},
	"content":    {GridScale: 1.0, MorphScale: 1.0, RotationScale: 1.0, DimensionBoost: 0.0, InteractionSensitivity: 1.0, Color: ColorBase},
	"highlight":  {GridScale: 1.5, MorphScale: 0.8, RotationScale: 1.2, DimensionBoost: 0.1, InteractionSensitivity: 1.2, Color: ColorBrighten},
	"accent":     {GridScale: 0.6, MorphScale: 0.4, RotationScale: 0.4, DimensionBoost: 0.2, InteractionSensitivity: 1.5, Color: ColorComplement},
}

// SectionFor returns the section of a face, defaulting to section 0.
func SectionFor(face int) (Section, bool) {
	if face < 0 || face >= len(Sections) {
		return Sections[0], false
	}
	return Sections[face], true
}

// InstanceParameters derives the parameters of one role on one face:
// master state scaled by the face section, then by the role modifier.
// Unknown roles use the "content" modifier; ok reports whether both the
// face and the role were recognized.
func InstanceParameters(m Master, face int, role string) (s Set, ok bool) {
	sec, faceOK := SectionFor(face)
	mod, roleOK := RoleModifiers[role]
	if !roleOK {
		mod = RoleModifiers["content"]
	}

	color := mod.Color.Apply(sec.BaseColor)
	s = Set{
		GridDensity:   m.Density * sec.DensityMod * mod.GridScale,
		RotationSpeed: m.Speed * sec.SpeedMod * mod.RotationScale,
		MorphFactor:   m.Complexity * sec.ComplexityMod * mod.MorphScale,
		Dimension:     m.Dimension + mod.DimensionBoost,
		Intensity:     m.Intensity * sec.IntensityMod,
		PrimaryR:      color[0],
		PrimaryG:      color[1],
		PrimaryB:      color[2],
	}
	return s.Clamped(), faceOK && roleOK
}
