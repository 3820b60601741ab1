// Package design defines the part model produced by script evaluation and
// consumed by tessellation. A Design is rebuilt from scratch on every
// evaluation; parts are never shared between designs.
package design

import (
	"fmt"

	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/plate"
	"github.com/chazu/formwork/pkg/sweep"
	"github.com/chazu/formwork/pkg/vecmath"
)

// PartKind enumerates the kinds of parts in a design.
type PartKind int

const (
	PartPlate PartKind = iota // extruded outlines
	PartTube                  // swept cross-sections
)

func (k PartKind) String() string {
	switch k {
	case PartPlate:
		return "plate"
	case PartTube:
		return "tube"
	default:
		return "unknown"
	}
}

// Instance places one copy of a part: rotation first, then translation.
type Instance struct {
	Rotation    vecmath.Quat `json:"rotation"`
	Translation vecmath.Vec3 `json:"translation"`
}

// Identity is the placement that leaves a part where it was built.
func Identity() Instance {
	return Instance{Rotation: vecmath.QuatIdentity()}
}

// PlateSpec holds the outlines and extrusion range of a plate part.
type PlateSpec struct {
	Outlines *plate.Plate
	Bottom   float64
	Height   float64
}

// Part is one named solid of the design.
type Part struct {
	Name      string          `json:"name"`
	Kind      PartKind        `json:"kind"`
	Plate     *PlateSpec      `json:"-"`
	Tube      *sweep.Tube     `json:"-"`
	Material  kernel.Material `json:"material"`
	Instances []Instance      `json:"instances,omitempty"`
}

// Placements returns the part's instances, or a single identity placement
// when none were given.
func (p *Part) Placements() []Instance {
	if len(p.Instances) == 0 {
		return []Instance{Identity()}
	}
	return p.Instances
}

// Design is the ordered list of parts evaluated from one script.
type Design struct {
	Parts []*Part          `json:"parts"`
	index map[string]*Part // first part per name
}

// New creates an empty Design.
func New() *Design {
	return &Design{index: make(map[string]*Part)}
}

// Add appends a part. It does not reject duplicate names; Validate reports
// them.
func (d *Design) Add(p *Part) {
	d.Parts = append(d.Parts, p)
	if d.index == nil {
		d.index = make(map[string]*Part)
	}
	if _, ok := d.index[p.Name]; !ok && p.Name != "" {
		d.index[p.Name] = p
	}
}

// Lookup returns the first part with the given name, or nil.
func (d *Design) Lookup(name string) *Part {
	return d.index[name]
}

// MustLookup returns the part with the given name, or panics.
func (d *Design) MustLookup(name string) *Part {
	p := d.Lookup(name)
	if p == nil {
		panic(fmt.Sprintf("design: no part named %q", name))
	}
	return p
}

// PartCount returns the number of parts.
func (d *Design) PartCount() int {
	return len(d.Parts)
}

// InstanceCount returns the number of placed copies across all parts.
func (d *Design) InstanceCount() int {
	n := 0
	for _, p := range d.Parts {
		n += len(p.Placements())
	}
	return n
}

// Plates returns the plate parts in declaration order.
func (d *Design) Plates() []*Part {
	return d.ofKind(PartPlate)
}

// Tubes returns the tube parts in declaration order.
func (d *Design) Tubes() []*Part {
	return d.ofKind(PartTube)
}

func (d *Design) ofKind(k PartKind) []*Part {
	var out []*Part
	for _, p := range d.Parts {
		if p.Kind == k {
			out = append(out, p)
		}
	}
	return out
}
