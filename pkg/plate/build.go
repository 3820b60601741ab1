package plate

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/nest"
	"github.com/chazu/formwork/pkg/triangulate"
	"github.com/chazu/formwork/pkg/vecmath"
)

// Cap windings. Top rings are stored reversed, so both caps face outward.
const (
	bottomWinding = triangulate.CounterClockwise
	topWinding    = triangulate.Clockwise
)

// matchTolerance is the distance under which a top vertex is taken to sit
// directly above a bottom vertex.
const matchTolerance = 1e-12

// Extrusion holds the parameters of one Build call.
type Extrusion struct {
	Name     string
	Bottom   float64
	Height   float64
	Material kernel.Material
}

// PartialSolidWarning reports an outline whose bottom and top rings ended up
// with different lengths after hole merging. Its side walls are omitted.
type PartialSolidWarning struct {
	Outline int
	Bottom  int
	Top     int
}

func (w *PartialSolidWarning) Error() string {
	return fmt.Sprintf("outline %d: bottom ring has %d vertices, top ring %d; side walls skipped",
		w.Outline, w.Bottom, w.Top)
}

// Build extrudes the plate's outlines.
func Build(p *Plate, ex Extrusion) (*kernel.Mesh, []kernel.Diagnostic) {
	return Extrude(p.outlines, ex)
}

// Extrude turns outlines into a closed solid. Each outline with at least 3
// points gets a bottom ring at ex.Bottom and a reversed top ring at
// ex.Bottom+ex.Height. Holes are merged into their parents per cap, every
// remaining ring is triangulated and side walls connect the two caps.
//
// Problems never abort the build; they come back as diagnostics next to
// whatever geometry could be produced.
func Extrude(outlines []Outline, ex Extrusion) (*kernel.Mesh, []kernel.Diagnostic) {
	mat := kernel.ResolveMaterial(ex.Material, ex.Name)
	mesh := &kernel.Mesh{Name: ex.Name}

	// verts mirrors the mesh vertex buffer in 2D; both share indices.
	var verts []vecmath.Vec2
	bottom := make([][]int, len(outlines))
	top := make([][]int, len(outlines))
	for i, line := range outlines {
		n := len(line)
		if n < 3 {
			continue
		}
		ofs := len(verts)
		bottom[i] = make([]int, n)
		for j, pt := range line {
			verts = append(verts, pt)
			mesh.AddVertex(vecmath.Vec3{X: pt.X, Y: ex.Bottom, Z: pt.Y})
			bottom[i][j] = ofs + j
		}
		ofs += n
		top[i] = make([]int, n)
		for j, pt := range line {
			verts = append(verts, pt)
			mesh.AddVertex(vecmath.Vec3{X: pt.X, Y: ex.Bottom + ex.Height, Z: pt.Y})
			top[i][j] = ofs + n - 1 - j
		}
	}

	var diags []kernel.Diagnostic
	bottomSet := nest.Resolve(verts, bottom, bottomWinding)
	topSet := nest.Resolve(verts, top, topWinding)
	diags = append(diags, nestDiagnostics(bottomSet, "bottom")...)
	diags = append(diags, nestDiagnostics(topSet, "top")...)

	diags = append(diags, emitCap(mesh, verts, bottomSet.Rings, bottomWinding, "bottom")...)
	diags = append(diags, emitCap(mesh, verts, topSet.Rings, topWinding, "top")...)

	for i := range outlines {
		b, t := bottomSet.Rings[i], topSet.Rings[i]
		if len(b) != len(t) {
			diags = append(diags, kernel.Diagnostic{
				Severity: kernel.SeverityWarning,
				Code:     kernel.CodePartialSolid,
				Outline:  i,
				Err:      &PartialSolidWarning{Outline: i, Bottom: len(b), Top: len(t)},
			})
			continue
		}
		emitWalls(mesh, verts, b, t)
	}

	mesh.Groups = []kernel.Group{{
		Name:       ex.Name,
		IndexCount: len(mesh.Indices),
		Material:   mat,
	}}
	return mesh, diags
}

func emitCap(mesh *kernel.Mesh, verts []vecmath.Vec2, rings [][]int, w triangulate.Winding, side string) []kernel.Diagnostic {
	var diags []kernel.Diagnostic
	for i, ring := range rings {
		if len(ring) == 0 {
			continue
		}
		res, err := triangulate.Triangulate(verts, ring, w)
		if err != nil {
			diags = append(diags, degenerate(i, side, err))
		}
		for _, f := range res.Faces {
			mesh.AddTriangle(uint32(f.A), uint32(f.O), uint32(f.B))
		}
	}
	return diags
}

// emitWalls stitches one quad per bottom edge to the top vertices found
// directly above its ends.
func emitWalls(mesh *kernel.Mesh, verts []vecmath.Vec2, bottom, top []int) {
	n := len(bottom)
	for ib := range n {
		ix1 := bottom[ib]
		ix2 := above(verts, verts[ix1], top)
		ix0 := bottom[(ib+1)%n]
		ix3 := above(verts, verts[ix0], top)
		mesh.AddTriangle(uint32(ix0), uint32(ix1), uint32(ix2))
		mesh.AddTriangle(uint32(ix0), uint32(ix2), uint32(ix3))
	}
}

// above returns the first top vertex within matchTolerance of p, falling
// back to the nearest one.
func above(verts []vecmath.Vec2, p vecmath.Vec2, top []int) int {
	best := top[0]
	nearest := math.Inf(1)
	for _, ix := range top {
		d := p.Distance(verts[ix])
		if d < matchTolerance {
			return ix
		}
		if d < nearest {
			nearest = d
			best = ix
		}
	}
	return best
}

// nestDiagnostics reports scoring failures for rings that were absorbed into
// a parent and so never get a cap triangulation of their own.
func nestDiagnostics(res nest.Result, side string) []kernel.Diagnostic {
	var diags []kernel.Diagnostic
	for _, err := range res.Errs {
		var d *triangulate.DegenerateInputError
		if !errors.As(err, &d) || d.Ring < 0 || !res.Merged[d.Ring] {
			continue
		}
		diags = append(diags, degenerate(d.Ring, side, err))
	}
	return diags
}

func degenerate(outline int, side string, err error) kernel.Diagnostic {
	if d, ok := err.(*triangulate.DegenerateInputError); ok && d.Ring < 0 {
		err = &triangulate.DegenerateInputError{Ring: outline, Dropped: d.Dropped}
	}
	return kernel.Diagnostic{
		Severity: kernel.SeverityError,
		Code:     kernel.CodeDegenerateOutline,
		Outline:  outline,
		Err:      fmt.Errorf("%s cap: %w", side, err),
	}
}
