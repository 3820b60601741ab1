// Package triangulate splits simple closed polygons into triangles by ear
// clipping. The apex search always starts from the active vertex farthest
// from a fixed reference point, which makes the output reproducible for
// identical input regardless of where the ring starts.
package triangulate

import (
	"errors"
	"fmt"

	"github.com/chazu/formwork/pkg/vecmath"
)

// farReference lies outside the coordinate range of any real outline.
var farReference = vecmath.Vec2{X: -1e10, Y: -1e10}

// Winding selects which orientation counts as a convex (valid) ear. The
// value is the sign applied to cross(va-vo, vb-vo); a ring is triangulated
// cleanly only when it runs in the direction its Winding names.
type Winding int

const (
	CounterClockwise Winding = -1 // ring runs counter-clockwise in the XY plane
	Clockwise        Winding = 1  // ring runs clockwise in the XY plane
)

func (w Winding) String() string {
	switch w {
	case Clockwise:
		return "clockwise"
	case CounterClockwise:
		return "counter-clockwise"
	default:
		return fmt.Sprintf("Winding(%d)", int(w))
	}
}

// ErrTooFewVertices is returned for rings that cannot form a triangle.
var ErrTooFewVertices = errors.New("triangulate: ring needs at least 3 vertices")

// Face is one emitted triangle. O is the ear apex at emission time.
type Face struct {
	A, O, B int
}

// Result holds the output of a triangulation.
type Result struct {
	Faces   []Face
	Area    float64 // sum of |area| of the emitted faces
	Dropped []int   // vertex indices removed because no valid ear could use them
}

// DegenerateInputError reports vertices that could never become part of a
// valid ear. It usually means the ring self-intersects or is heavily
// collinear. The faces emitted for the rest of the ring are still returned.
type DegenerateInputError struct {
	Ring    int // caller-assigned ring slot, -1 if unknown
	Dropped []int
}

func (e *DegenerateInputError) Error() string {
	if e.Ring < 0 {
		return fmt.Sprintf("degenerate ring: dropped %d unresolvable vertices %v", len(e.Dropped), e.Dropped)
	}
	return fmt.Sprintf("degenerate ring %d: dropped %d unresolvable vertices %v", e.Ring, len(e.Dropped), e.Dropped)
}

// Triangulate ear-clips the polygon whose corners are verts[ring[0]],
// verts[ring[1]], ... and returns faces that cover it along with its area.
// A simple polygon with n corners yields n-2 faces.
//
// When vertices have to be dropped, the partial result is returned together
// with a *DegenerateInputError.
func Triangulate(verts []vecmath.Vec2, ring []int, w Winding) (Result, error) {
	n := len(ring)
	if n < 3 {
		return Result{}, ErrTooFewVertices
	}

	distance := make([]float64, n)
	for i, ix := range ring {
		distance[i] = farReference.Distance(verts[ix])
	}
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	// step walks from i in direction dir (+1/-1) to the next active slot.
	step := func(i, dir int) int {
		for range n {
			i = (i + dir + n) % n
			if active[i] {
				break
			}
		}
		return i
	}

	var res Result
	for {
		count := 0
		ixO := -1
		farthest := 0.0
		for i := range n {
			if !active[i] {
				continue
			}
			if ixO < 0 || farthest < distance[i] {
				farthest = distance[i]
				ixO = i
			}
			count++
		}
		if count < 3 {
			break
		}

		failures := 0
		for {
			ixA := step(ixO, -1)
			ixB := step(ixO, 1)
			va, vo, vb := verts[ring[ixA]], verts[ring[ixO]], verts[ring[ixB]]

			cross := va.Sub(vo).Cross(vb.Sub(vo)) * float64(w)
			ear := cross >= 0
			if ear {
				for i := range n {
					if i == ixA || i == ixO || i == ixB || !active[i] {
						continue
					}
					if PointInTriangle(va, vo, vb, verts[ring[i]]) {
						ear = false
						break
					}
				}
			}

			if ear {
				res.Faces = append(res.Faces, Face{A: ring[ixA], O: ring[ixO], B: ring[ixB]})
				if cross < 0 {
					cross = -cross
				}
				res.Area += cross / 2
				active[ixO] = false
				break
			}

			failures++
			if failures > n {
				active[ixO] = false
				res.Dropped = append(res.Dropped, ring[ixO])
				break
			}
			ixO = step(ixO, int(w))
		}

		if count == 3 {
			break
		}
	}

	if len(res.Dropped) > 0 {
		return res, &DegenerateInputError{Ring: -1, Dropped: res.Dropped}
	}
	return res, nil
}

// SignedArea returns the shoelace area of the ring; positive when the ring
// runs counter-clockwise.
func SignedArea(verts []vecmath.Vec2, ring []int) float64 {
	var sum float64
	for i, ix := range ring {
		p := verts[ix]
		q := verts[ring[(i+1)%len(ring)]]
		sum += p.Cross(q)
	}
	return sum / 2
}
