// Package nest resolves containment between the outlines of one ring set
// (all bottom rings, or all top rings) and splices every hole into its
// parent through a bridging edge, so that each remaining ring can be ear
// clipped on its own.
package nest

import (
	"math"

	"github.com/chazu/formwork/pkg/triangulate"
	"github.com/chazu/formwork/pkg/vecmath"
)

// Merge order references, one per winding. They only make the merge order
// deterministic.
var (
	cornerCounterClockwise = vecmath.Vec2{X: 1e10, Y: 1e10}
	cornerClockwise        = vecmath.Vec2{X: -1e10, Y: -1e10}
)

// Info records where one ring sits in the containment hierarchy.
type Info struct {
	Parent int // index of the containing ring, -1 for none
	Depth  int // number of containing rings; odd marks a hole
}

// IsHole reports whether the ring is subtracted from its parent.
func (i Info) IsHole() bool {
	return i.Depth%2 == 1
}

// Result is the outcome of Resolve.
type Result struct {
	Rings  [][]int // spliced rings; absorbed holes are empty
	Info   []Info
	Merged []bool  // true for holes absorbed into their parent
	Errs   []error // failures of the scoring triangulations, tagged by ring
}

// Depths scores every ordered pair of rings and returns the nesting
// information without merging anything. Rings with fewer than 3 entries are
// ignored and keep Parent -1, Depth 0.
func Depths(verts []vecmath.Vec2, rings [][]int, w triangulate.Winding) ([]Info, []error) {
	info := make([]Info, len(rings))
	for i := range info {
		info[i].Parent = -1
	}

	// Scoring triangulations depend only on the ring, so each one is done once.
	scores := make([]*score, len(rings))
	var errs []error
	scoreOf := func(i int) *score {
		if scores[i] == nil {
			res, err := triangulate.Triangulate(verts, rings[i], w)
			if err != nil {
				errs = append(errs, tagRing(err, i))
			}
			scores[i] = &score{faces: res.Faces, area: res.Area}
		}
		return scores[i]
	}

	for outer := range rings {
		if len(rings[outer]) < 3 {
			continue
		}
		for inner := range rings {
			if inner == outer || len(rings[inner]) < 3 {
				continue
			}
			if info[outer].Depth < info[inner].Depth {
				continue
			}
			o := scoreOf(outer)
			in := scoreOf(inner)
			if in.area < o.area && overlaps(verts, o.faces, in.faces) {
				info[inner].Parent = outer
				info[inner].Depth++
			}
		}
	}
	return info, errs
}

// Resolve computes nesting depths for the whole set first, then merges odd
// depth rings into their parents one at a time. The caller's rings are not
// modified.
func Resolve(verts []vecmath.Vec2, rings [][]int, w triangulate.Winding) Result {
	info, errs := Depths(verts, rings, w)

	out := make([][]int, len(rings))
	for i, r := range rings {
		if len(r) < 3 {
			continue
		}
		out[i] = append([]int(nil), r...)
	}
	res := Result{Rings: out, Info: info, Merged: make([]bool, len(rings)), Errs: errs}

	corner := cornerClockwise
	if w == triangulate.CounterClockwise {
		corner = cornerCounterClockwise
	}

	for {
		hole := nextHole(verts, res, corner)
		if hole < 0 {
			return res
		}
		parent := info[hole].Parent
		// An absorbed parent hands its slot to the hole. The slot is still
		// odd depth, so a later round bridges it into the grandparent.
		out[parent] = bridge(verts, out[parent], out[hole])
		out[hole] = nil
		res.Merged[hole] = true
		res.Merged[parent] = false
	}
}

// nextHole picks the unmerged odd-depth ring whose first vertex is nearest to
// corner, or -1 when none remain.
func nextHole(verts []vecmath.Vec2, res Result, corner vecmath.Vec2) int {
	best := -1
	nearest := math.Inf(1)
	for i, inf := range res.Info {
		if !inf.IsHole() || res.Merged[i] || inf.Parent == i || inf.Parent < 0 {
			continue
		}
		if len(res.Rings[i]) < 3 {
			continue
		}
		d := verts[res.Rings[i][0]].Distance(corner)
		if d < nearest {
			nearest = d
			best = i
		}
	}
	return best
}

// bridge splices hole into parent at their globally closest vertex pair.
// The result runs parent[0..dst], hole reversed from src all the way round,
// hole[src] again, then parent[dst..]. Both bridge endpoints appear twice.
// An empty parent yields the reversed hole closed on its first vertex.
func bridge(verts []vecmath.Vec2, parent, hole []int) []int {
	src, dst := 0, 0
	nearest := math.Inf(1)
	for i, hc := range hole {
		vc := verts[hc]
		for j, pc := range parent {
			d := vc.Distance(verts[pc])
			if d < nearest {
				nearest = d
				src, dst = i, j
			}
		}
	}

	n := len(hole)
	out := make([]int, 0, len(parent)+n+2)
	if len(parent) > 0 {
		out = append(out, parent[:dst+1]...)
	}
	for i := range n {
		out = append(out, hole[(n+src-i)%n])
	}
	out = append(out, hole[src])
	out = append(out, parent[dst:]...)
	return out
}

type score struct {
	faces []triangulate.Face
	area  float64
}

// overlaps reports whether any corner of any inner face lies inside any
// outer face.
func overlaps(verts []vecmath.Vec2, outer, inner []triangulate.Face) bool {
	for _, of := range outer {
		a, o, b := verts[of.A], verts[of.O], verts[of.B]
		for _, inf := range inner {
			if triangulate.PointInTriangle(a, o, b, verts[inf.A]) ||
				triangulate.PointInTriangle(a, o, b, verts[inf.O]) ||
				triangulate.PointInTriangle(a, o, b, verts[inf.B]) {
				return true
			}
		}
	}
	return false
}

// tagRing attaches the ring slot to degenerate-input errors.
func tagRing(err error, ring int) error {
	if d, ok := err.(*triangulate.DegenerateInputError); ok {
		return &triangulate.DegenerateInputError{Ring: ring, Dropped: d.Dropped}
	}
	return err
}
