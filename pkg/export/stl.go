package export

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/formwork/pkg/kernel"
)

// SaveSTL writes meshes to path as one binary STL. Meshes are Y-up and
// STL is Z-up, so Y and Z are swapped; the swap mirrors the solid, so each
// triangle is written in reverse order to keep its normal outward.
func SaveSTL(path string, meshes ...*kernel.Mesh) error {
	var tris []*sdf.Triangle3
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for t := range m.TriangleCount() {
			c := m.Triangle(t)
			tris = append(tris, &sdf.Triangle3{
				zUp(c[0].X, c[0].Y, c[0].Z),
				zUp(c[2].X, c[2].Y, c[2].Z),
				zUp(c[1].X, c[1].Y, c[1].Z),
			})
		}
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("save stl %s: %w", path, err)
	}
	return nil
}

// LoadSTL reads a binary STL written by SaveSTL (or any other tool) back
// into a Y-up mesh named name. Corners with identical coordinates share
// one vertex. The mesh has a single group with the default material.
func LoadSTL(path, name string) (*kernel.Mesh, error) {
	tris, err := render.LoadSTL(path)
	if err != nil {
		return nil, fmt.Errorf("load stl %s: %w", path, err)
	}
	m := &kernel.Mesh{Name: name}
	index := make(map[v3.Vec]uint32)
	vertex := func(v v3.Vec) uint32 {
		if ix, ok := index[v]; ok {
			return ix
		}
		ix := uint32(m.VertexCount())
		m.Vertices = append(m.Vertices, v.X, v.Z, v.Y)
		index[v] = ix
		return ix
	}
	for _, t := range tris {
		a, b, c := vertex(t[0]), vertex(t[1]), vertex(t[2])
		m.AddTriangle(a, c, b)
	}
	m.Groups = []kernel.Group{{
		Name:       name,
		IndexCount: len(m.Indices),
		Material:   kernel.DefaultMaterial(name),
	}}
	return m, nil
}

func zUp(x, y, z float64) v3.Vec {
	return v3.Vec{X: x, Y: z, Z: y}
}
