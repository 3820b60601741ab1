// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// The result is an approximation produced by marching cubes. It serves as
// a reference to cross-check the exact native kernel (volume, bounds) and
// as a fallback for outlines the ear clipper rejects.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/nest"
	"github.com/chazu/formwork/pkg/triangulate"
	"github.com/chazu/formwork/pkg/vecmath"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// ErrNonPositiveHeight is returned for profiles with no thickness; the
// distance field of a zero height extrusion is empty.
var ErrNonPositiveHeight = errors.New("extrusion height must be positive")

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel meshing with the given number of cells
// along the longest axis. Non-positive values select DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

func (k *SdfxKernel) Name() string { return "sdfx" }

// Extrude builds the profile as a 2D distance field, extrudes it and meshes
// the result. Outlines at even nesting depth are added and outlines at odd
// depth are cut away, one depth level at a time.
func (k *SdfxKernel) Extrude(p kernel.Profile) (*kernel.Mesh, []kernel.Diagnostic, error) {
	if p.Height <= 0 {
		return nil, nil, fmt.Errorf("%s: %w", p.Name, ErrNonPositiveHeight)
	}
	mesh := &kernel.Mesh{Name: p.Name}

	var verts []vecmath.Vec2
	rings := make([][]int, len(p.Outlines))
	for i, o := range p.Outlines {
		if len(o) < 3 {
			continue
		}
		for _, pt := range o {
			rings[i] = append(rings[i], len(verts))
			verts = append(verts, pt)
		}
	}
	info, errs := nest.Depths(verts, rings, triangulate.CounterClockwise)

	var diags []kernel.Diagnostic
	for _, err := range errs {
		outline := -1
		var de *triangulate.DegenerateInputError
		if errors.As(err, &de) {
			outline = de.Ring
		}
		diags = append(diags, kernel.Diagnostic{
			Severity: kernel.SeverityError,
			Code:     kernel.CodeDegenerateOutline,
			Part:     p.Name,
			Outline:  outline,
			Err:      fmt.Errorf("nesting: %w", err),
		})
	}
	levels := map[int][]sdf.SDF2{}
	deepest := -1
	for i, o := range p.Outlines {
		if len(rings[i]) == 0 {
			continue
		}
		poly, err := polygon(o)
		if err != nil {
			diags = append(diags, kernel.Diagnostic{
				Severity: kernel.SeverityError,
				Code:     kernel.CodeKernel,
				Part:     p.Name,
				Outline:  i,
				Err:      err,
			})
			continue
		}
		d := info[i].Depth
		levels[d] = append(levels[d], poly)
		deepest = max(deepest, d)
	}

	var shape sdf.SDF2
	for d := 0; d <= deepest; d++ {
		polys := levels[d]
		if len(polys) == 0 {
			continue
		}
		layer := sdf.Union2D(polys...)
		switch {
		case shape == nil && d%2 == 0:
			shape = layer
		case shape == nil:
			// Holes with nothing to cut from.
		case d%2 == 0:
			shape = sdf.Union2D(shape, layer)
		default:
			shape = sdf.Difference2D(shape, layer)
		}
	}
	if shape == nil {
		mesh.Groups = []kernel.Group{{Name: p.Name, Material: kernel.ResolveMaterial(p.Material, p.Name)}}
		return mesh, diags, nil
	}

	solid := sdf.Extrude3D(shape, p.Height)
	// Outline Y was mirrored, so a quarter turn about X lands (x, -y, z) on
	// (x, z, y). Extrude3D is centred on z = 0.
	m := sdf.Translate3d(v3.Vec{Y: p.Bottom + p.Height/2}).Mul(sdf.RotateX(-math.Pi / 2))
	solid = sdf.Transform3D(solid, m)

	triangles := render.ToTriangles(solid, render.NewMarchingCubesUniform(k.cells))
	mesh.Vertices = make([]float64, 0, len(triangles)*9)
	mesh.Indices = make([]uint32, 0, len(triangles)*3)
	for i, tri := range triangles {
		for j := 0; j < 3; j++ {
			v := tri[j]
			mesh.Vertices = append(mesh.Vertices, v.X, v.Y, v.Z)
			mesh.Indices = append(mesh.Indices, uint32(i*3+j))
		}
	}
	mesh.Groups = []kernel.Group{{
		Name:       p.Name,
		IndexCount: len(mesh.Indices),
		Material:   kernel.ResolveMaterial(p.Material, p.Name),
	}}
	return mesh, diags, nil
}

// polygon converts an outline to an sdfx polygon with Y mirrored.
func polygon(o []vecmath.Vec2) (sdf.SDF2, error) {
	pts := make([]v2.Vec, len(o))
	for i, p := range o {
		pts[i] = v2.Vec{X: p.X, Y: -p.Y}
	}
	s, err := sdf.Polygon2D(pts)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Polygon2D: %w", err)
	}
	return s, nil
}
