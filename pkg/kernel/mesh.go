package kernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/formwork/pkg/vecmath"
)

// Mesh is an indexed triangle mesh.
// All arrays are flat: Vertices has 3 floats per vertex (x,y,z), Indices
// has 3 entries per triangle. Groups partition Indices into contiguous,
// gap-free ranges, each drawn with one material.
type Mesh struct {
	Name     string    `json:"name"`
	Vertices []float64 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Groups   []Group   `json:"groups"`
}

// Group is a named range of the index buffer.
type Group struct {
	Name        string   `json:"name"`
	IndexOffset int      `json:"indexOffset"`
	IndexCount  int      `json:"indexCount"`
	Material    Material `json:"material"`
}

// TriangleCount returns the number of triangles in the group.
func (g Group) TriangleCount() int {
	return g.IndexCount / 3
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) vecmath.Vec3 {
	return vecmath.Vec3{X: m.Vertices[i*3], Y: m.Vertices[i*3+1], Z: m.Vertices[i*3+2]}
}

// Triangle returns the three corner positions of triangle t.
func (m *Mesh) Triangle(t int) [3]vecmath.Vec3 {
	return [3]vecmath.Vec3{
		m.Vertex(int(m.Indices[t*3])),
		m.Vertex(int(m.Indices[t*3+1])),
		m.Vertex(int(m.Indices[t*3+2])),
	}
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(v vecmath.Vec3) uint32 {
	ix := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, v.X, v.Y, v.Z)
	return ix
}

// AddTriangle appends one triangle.
func (m *Mesh) AddTriangle(a, b, c uint32) {
	m.Indices = append(m.Indices, a, b, c)
}

// Bounds returns the axis-aligned bounding box. An empty mesh returns two
// zero vectors.
func (m *Mesh) Bounds() (min, max vecmath.Vec3) {
	if m.IsEmpty() {
		return vecmath.Vec3{}, vecmath.Vec3{}
	}
	min = vecmath.Vec3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = vecmath.Vec3{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := range m.VertexCount() {
		v := m.Vertex(i)
		min.X, max.X = math.Min(min.X, v.X), math.Max(max.X, v.X)
		min.Y, max.Y = math.Min(min.Y, v.Y), math.Max(max.Y, v.Y)
		min.Z, max.Z = math.Min(min.Z, v.Z), math.Max(max.Z, v.Z)
	}
	return min, max
}

// Volume returns the signed volume enclosed by the triangles, positive when
// the faces wind counter-clockwise seen from outside. Only meaningful for
// closed meshes.
func (m *Mesh) Volume() float64 {
	var sum float64
	for t := range m.TriangleCount() {
		tri := m.Triangle(t)
		sum += tri[0].Dot(tri[1].Cross(tri[2]))
	}
	return sum / 6
}

// Validation errors.
var (
	ErrBufferShape    = errors.New("buffer length is not a multiple of 3")
	ErrIndexRange     = errors.New("index out of range")
	ErrGroupLayout    = errors.New("groups do not partition the index buffer")
	ErrGroupAlignment = errors.New("group range is not triangle aligned")
)

// Validate checks the buffer shapes, index bounds and that the groups cover
// the index buffer contiguously without gaps or overlap.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 || len(m.Indices)%3 != 0 {
		return ErrBufferShape
	}
	n := uint32(m.VertexCount())
	for i, ix := range m.Indices {
		if ix >= n {
			return fmt.Errorf("%w: index %d = %d, %d vertices", ErrIndexRange, i, ix, n)
		}
	}
	if len(m.Groups) == 0 {
		if len(m.Indices) != 0 {
			return fmt.Errorf("%w: %d indices but no groups", ErrGroupLayout, len(m.Indices))
		}
		return nil
	}
	next := 0
	for _, g := range m.Groups {
		if g.IndexOffset%3 != 0 || g.IndexCount%3 != 0 {
			return fmt.Errorf("%w: group %q", ErrGroupAlignment, g.Name)
		}
		if g.IndexOffset != next {
			return fmt.Errorf("%w: group %q starts at %d, expected %d", ErrGroupLayout, g.Name, g.IndexOffset, next)
		}
		next += g.IndexCount
	}
	if next != len(m.Indices) {
		return fmt.Errorf("%w: groups cover %d of %d indices", ErrGroupLayout, next, len(m.Indices))
	}
	return nil
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Name:     m.Name,
		Vertices: append([]float64(nil), m.Vertices...),
		Indices:  append([]uint32(nil), m.Indices...),
		Groups:   append([]Group(nil), m.Groups...),
	}
}

// Transform returns a copy with every vertex rotated by rot and then
// translated by trans. Indices and groups are shared in layout, not memory.
func (m *Mesh) Transform(rot vecmath.Quat, trans vecmath.Vec3) *Mesh {
	out := m.Clone()
	for i := range out.VertexCount() {
		v := rot.Rotate(out.Vertex(i)).Add(trans)
		out.Vertices[i*3], out.Vertices[i*3+1], out.Vertices[i*3+2] = v.X, v.Y, v.Z
	}
	return out
}

// Merge concatenates meshes into one, offsetting each mesh's indices past
// the vertices already added and moving its groups past the indices
// already added. Nil meshes are skipped.
func Merge(name string, meshes ...*Mesh) *Mesh {
	out := &Mesh{Name: name}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		vofs := uint32(out.VertexCount())
		iofs := len(out.Indices)
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, ix := range m.Indices {
			out.Indices = append(out.Indices, ix+vofs)
		}
		for _, g := range m.Groups {
			g.IndexOffset += iofs
			out.Groups = append(out.Groups, g)
		}
	}
	return out
}
