// Package plate builds flat outlines and extrudes them into closed solids.
//
// Outlines are authored in the XY plane. Extrusion maps an outline point
// (x, y) at elevation e to the vertex (x, e, y), so the plate grows along
// +Y. Outlines nested inside other outlines become holes, and outlines
// nested inside holes become islands again.
package plate

import (
	"math"

	"github.com/chazu/formwork/pkg/vecmath"
)

// Outline is a closed loop of points; the last point connects back to the
// first. Outlines with fewer than 3 points are ignored by Build.
type Outline []vecmath.Vec2

// Plate collects the outlines of one extruded part.
type Plate struct {
	outlines []Outline
}

// New returns an empty plate.
func New() *Plate {
	return &Plate{}
}

// AddRectangle adds a w by h rectangle centred on center and rotated by
// angle radians.
func (p *Plate) AddRectangle(center vecmath.Vec2, w, h, angle float64) {
	w *= 0.5
	h *= 0.5
	line := Outline{
		{X: -w, Y: -h},
		{X: w, Y: -h},
		{X: w, Y: h},
		{X: -w, Y: h},
	}
	p.add(line, angle, center)
}

// AddCircle adds a circle of diameter d approximated by div points.
func (p *Plate) AddCircle(center vecmath.Vec2, d float64, div int) {
	r := d / 2
	line := make(Outline, 0, max(div, 0))
	for i := range div {
		th := 2 * math.Pi * float64(i) / float64(div)
		line = append(line, vecmath.Vec2{
			X: r*math.Cos(th) + center.X,
			Y: r*math.Sin(th) + center.Y,
		})
	}
	p.outlines = append(p.outlines, line)
}

// AddCapsule adds a slot of width w and overall length along the local X
// axis, rotated by angle radians. Each rounded end uses div points, so the
// outline has 2*div points. A length shorter than w degenerates to a
// circle.
func (p *Plate) AddCapsule(center vecmath.Vec2, w, length, angle float64, div int) {
	r := w / 2
	ofs := 0.0
	if length >= w {
		ofs = (length - w) / 2
	}
	line := make(Outline, 0, 2*max(div, 0))
	for i := range div {
		th := math.Pi*float64(i)/float64(div) - math.Pi/2
		line = append(line, vecmath.Vec2{X: r*math.Cos(th) + ofs, Y: r * math.Sin(th)})
	}
	for i := range div {
		th := math.Pi*float64(i)/float64(div) + math.Pi/2
		line = append(line, vecmath.Vec2{X: r*math.Cos(th) - ofs, Y: r * math.Sin(th)})
	}
	p.add(line, angle, center)
}

// AddOutline adds a copy of points as a raw outline.
func (p *Plate) AddOutline(points []vecmath.Vec2) {
	p.outlines = append(p.outlines, append(Outline(nil), points...))
}

// Outlines returns copies of every outline in insertion order.
func (p *Plate) Outlines() []Outline {
	out := make([]Outline, len(p.outlines))
	for i, o := range p.outlines {
		out[i] = append(Outline(nil), o...)
	}
	return out
}

// Len returns the number of outlines, including ones too short to build.
func (p *Plate) Len() int {
	return len(p.outlines)
}

func (p *Plate) add(line Outline, angle float64, center vecmath.Vec2) {
	for i, v := range line {
		line[i] = v.Rotate(angle).Add(center)
	}
	p.outlines = append(p.outlines, line)
}
