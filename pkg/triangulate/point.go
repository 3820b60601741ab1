package triangulate

import "github.com/chazu/formwork/pkg/vecmath"

// PointInTriangle reports whether p lies inside triangle (a, o, b). The
// triangle may have either orientation. A point exactly on one edge counts
// as inside when the other two edge signs agree; points on a corner (two
// zero signs) are outside, so shared corners of adjacent ears never block
// each other.
func PointInTriangle(a, o, b, p vecmath.Vec2) bool {
	oap := o.Sub(a).Cross(p.Sub(a))
	bop := b.Sub(o).Cross(p.Sub(o))
	abp := a.Sub(b).Cross(p.Sub(b))

	if oap > 0 && bop > 0 && abp > 0 {
		return true
	}
	if oap < 0 && bop < 0 && abp < 0 {
		return true
	}
	if oap == 0 && sameSign(bop, abp) {
		return true
	}
	if bop == 0 && sameSign(abp, oap) {
		return true
	}
	if abp == 0 && sameSign(oap, bop) {
		return true
	}
	return false
}

// sameSign reports whether x and y are both strictly positive or both
// strictly negative.
func sameSign(x, y float64) bool {
	return (x > 0 && y > 0) || (x < 0 && y < 0)
}
