package kernel

// Color is a linear RGB triple in 0..1.
type Color struct {
	R, G, B float64
}

// Scale multiplies every channel by s.
func (c Color) Scale(s float64) Color {
	return Color{R: c.R * s, G: c.G * s, B: c.B * s}
}

var (
	White = Color{R: 1, G: 1, B: 1}
	Green = Color{R: 0, G: 1, B: 0}
)

// Material holds the surface parameters written to MTL files.
type Material struct {
	Name       string  `json:"name"`
	Diffuse    Color   `json:"diffuse"`
	Ambient    Color   `json:"ambient"`
	Specular   Color   `json:"specular"`
	Shininess  float64 `json:"shininess"`
	Refraction float64 `json:"refraction"`
}

// ambientFactor scales the diffuse color into the ambient one.
const ambientFactor = 0.3

// NewMaterial returns a material with the given diffuse color and the
// default ambient, specular, shininess and refraction.
func NewMaterial(name string, diffuse Color) Material {
	return Material{
		Name:       name,
		Diffuse:    diffuse,
		Ambient:    diffuse.Scale(ambientFactor),
		Specular:   White,
		Shininess:  20,
		Refraction: 1.75,
	}
}

// DefaultMaterial is the green material parts get when none is set.
func DefaultMaterial(name string) Material {
	return NewMaterial(name, Green)
}

// IsZero reports whether m was never set.
func (m Material) IsZero() bool {
	return m == Material{}
}

// ResolveMaterial fills in a missing material for a part: the default
// material when m is unset, and the part name when m has none.
func ResolveMaterial(m Material, part string) Material {
	if m.IsZero() {
		return DefaultMaterial(part)
	}
	if m.Name == "" {
		m.Name = part
	}
	return m
}
