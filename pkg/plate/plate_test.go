package plate

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/triangulate"
	"github.com/chazu/formwork/pkg/vecmath"
	"gonum.org/v1/gonum/floats/scalar"
)

// --- Outline builder ---

func TestAddCircle(t *testing.T) {
	for _, div := range []int{3, 8, 24, 48, 96} {
		p := New()
		p.AddCircle(vecmath.Vec2{X: 1, Y: 2}, 10, div)
		line := p.Outlines()[0]
		if len(line) != div {
			t.Fatalf("div=%d: got %d points", div, len(line))
		}
		for i, pt := range line {
			if d := pt.Distance(vecmath.Vec2{X: 1, Y: 2}); !scalar.EqualWithinAbs(d, 5, 1e-12) {
				t.Errorf("div=%d point %d: radius %v", div, i, d)
			}
		}
	}
}

func TestAddCapsule(t *testing.T) {
	tests := []struct {
		name      string
		w, length float64
		div       int
		extentX   float64
	}{
		{"slot", 4, 10, 24, 5},
		{"short slot is a circle", 4, 2, 12, 2},
		{"fine", 30, 60, 48, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.AddCapsule(vecmath.Vec2{}, tt.w, tt.length, 0, tt.div)
			line := p.Outlines()[0]
			if len(line) != 2*tt.div {
				t.Fatalf("expected %d points, got %d", 2*tt.div, len(line))
			}
			maxX := math.Inf(-1)
			for _, pt := range line {
				maxX = math.Max(maxX, pt.X)
			}
			if !scalar.EqualWithinAbs(maxX, tt.extentX, 1e-12) {
				t.Errorf("expected x extent %v, got %v", tt.extentX, maxX)
			}
			if a := triangulate.SignedArea(toVerts(line), ring(len(line))); a <= 0 {
				t.Errorf("capsule should run counter-clockwise, signed area %v", a)
			}
		})
	}
}

func TestAddRectangleRotated(t *testing.T) {
	p := New()
	p.AddRectangle(vecmath.Vec2{X: 10, Y: 0}, 4, 2, math.Pi/2)
	line := p.Outlines()[0]
	want := []vecmath.Vec2{{X: 11, Y: -2}, {X: 11, Y: 2}, {X: 9, Y: 2}, {X: 9, Y: -2}}
	for i := range want {
		if line[i].Distance(want[i]) > 1e-12 {
			t.Errorf("corner %d: expected %v, got %v", i, want[i], line[i])
		}
	}
}

func TestOutlinesAreCopies(t *testing.T) {
	p := New()
	pts := []vecmath.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	p.AddOutline(pts)
	pts[0].X = 99
	got := p.Outlines()
	got[0][1].X = 42
	if again := p.Outlines()[0]; again[0].X != 0 || again[1].X != 1 {
		t.Errorf("plate shares memory with callers: %v", again)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

// --- Solid assembly ---

func TestBuild(t *testing.T) {
	tests := []struct {
		name      string
		build     func(p *Plate)
		bottom    float64
		height    float64
		vertices  int
		triangles int
	}{
		{
			name:      "box",
			build:     func(p *Plate) { p.AddRectangle(vecmath.Vec2{}, 10, 10, 0) },
			height:    2,
			vertices:  8,
			triangles: 12,
		},
		{
			name: "square with hole",
			build: func(p *Plate) {
				p.AddRectangle(vecmath.Vec2{}, 10, 10, 0)
				p.AddRectangle(vecmath.Vec2{}, 4, 4, 0)
			},
			height:   2,
			vertices: 16,
			// 8 per cap plus one wall quad per merged ring entry.
			triangles: 8 + 8 + 2*10,
		},
		{
			name:      "circle",
			build:     func(p *Plate) { p.AddCircle(vecmath.Vec2{}, 10, 48) },
			bottom:    1,
			height:    3,
			vertices:  96,
			triangles: 46 + 46 + 96,
		},
		{
			name:      "rotated rectangle below zero",
			build:     func(p *Plate) { p.AddRectangle(vecmath.Vec2{X: 1, Y: 2}, 6, 3, 0.3) },
			bottom:    -1,
			height:    2,
			vertices:  8,
			triangles: 12,
		},
		{
			name: "short outline ignored",
			build: func(p *Plate) {
				p.AddRectangle(vecmath.Vec2{}, 10, 10, 0)
				p.AddOutline([]vecmath.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}})
			},
			height:    2,
			vertices:  8,
			triangles: 12,
		},
		{name: "motor mount", build: motorMount, height: 3, vertices: 672, triangles: 1380},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			tt.build(p)
			m, diags := Build(p, Extrusion{Name: tt.name, Bottom: tt.bottom, Height: tt.height})
			if len(diags) != 0 {
				t.Fatalf("unexpected diagnostics: %v", diags)
			}
			if err := m.Validate(); err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if m.VertexCount() != tt.vertices {
				t.Errorf("expected %d vertices, got %d", tt.vertices, m.VertexCount())
			}
			if m.TriangleCount() != tt.triangles {
				t.Errorf("expected %d triangles, got %d", tt.triangles, m.TriangleCount())
			}

			want := netArea(p) * tt.height
			if got := m.Volume(); !scalar.EqualWithinAbsOrRel(got, want, 1e-9, 1e-12) {
				t.Errorf("expected volume %v, got %v", want, got)
			}
			min, max := m.Bounds()
			if min.Y != tt.bottom || max.Y != tt.bottom+tt.height {
				t.Errorf("expected Y range [%v,%v], got [%v,%v]", tt.bottom, tt.bottom+tt.height, min.Y, max.Y)
			}
			if n := unpairedEdges(m); n != 0 {
				t.Errorf("mesh is not closed: %d unpaired edges", n)
			}
		})
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	p := New()
	motorMount(p)
	a, _ := Build(p, Extrusion{Name: "a", Height: 3})
	b, _ := Build(p, Extrusion{Name: "a", Height: 3})
	if !reflect.DeepEqual(a.Vertices, b.Vertices) {
		t.Error("vertex buffers differ between identical builds")
	}
	if !reflect.DeepEqual(a.Indices, b.Indices) {
		t.Error("index buffers differ between identical builds")
	}
}

func TestBuildMaterial(t *testing.T) {
	p := New()
	p.AddRectangle(vecmath.Vec2{}, 1, 1, 0)

	m, _ := Build(p, Extrusion{Name: "base", Height: 1})
	if len(m.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(m.Groups))
	}
	g := m.Groups[0]
	if g.Name != "base" || g.Material.Name != "base" || g.Material.Diffuse != kernel.Green {
		t.Errorf("unexpected default group: %+v", g)
	}
	if g.IndexOffset != 0 || g.IndexCount != len(m.Indices) {
		t.Errorf("group should cover the index buffer: %+v", g)
	}

	red := kernel.NewMaterial("red", kernel.Color{R: 1})
	m, _ = Build(p, Extrusion{Name: "base", Height: 1, Material: red})
	if m.Groups[0].Material != red {
		t.Errorf("expected material %+v, got %+v", red, m.Groups[0].Material)
	}
}

func TestBuildReportsDegenerateOutline(t *testing.T) {
	// Clockwise outlines cannot be ear clipped with the cap windings.
	p := New()
	p.AddOutline([]vecmath.Vec2{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}})

	m, diags := Build(p, Extrusion{Name: "cw", Height: 2})
	if len(diags) != 2 {
		t.Fatalf("expected one diagnostic per cap, got %v", diags)
	}
	for _, d := range diags {
		if d.Code != kernel.CodeDegenerateOutline || d.Severity != kernel.SeverityError || d.Outline != 0 {
			t.Errorf("unexpected diagnostic %+v", d)
		}
		var de *triangulate.DegenerateInputError
		if !errors.As(d, &de) {
			t.Errorf("diagnostic does not wrap DegenerateInputError: %v", d)
			continue
		}
		if de.Ring != 0 || len(de.Dropped) != 2 {
			t.Errorf("unexpected error %+v", de)
		}
	}
	// Side walls are still produced.
	if m.TriangleCount() != 8 {
		t.Errorf("expected 8 wall triangles, got %d", m.TriangleCount())
	}
}

func TestBuildReportsPartialSolid(t *testing.T) {
	// The bottom cap merges the 20 hole into the 30 hole before that one
	// joins the 40 square; the top cap goes the other way round. The 40
	// square ends up with 16 bottom entries and 17 top entries.
	p := New()
	for _, side := range []float64{30, 10, 40, 20} {
		p.AddRectangle(vecmath.Vec2{}, side, side, 0)
	}

	m, diags := Build(p, Extrusion{Name: "nested", Height: 1})

	var partial []kernel.Diagnostic
	for _, d := range diags {
		if d.Code == kernel.CodePartialSolid {
			partial = append(partial, d)
		}
	}
	if len(partial) != 1 {
		t.Fatalf("expected one partial-solid diagnostic, got %v", diags)
	}
	d := partial[0]
	if d.Severity != kernel.SeverityWarning || d.Outline != 2 {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	var w *PartialSolidWarning
	if !errors.As(d, &w) {
		t.Fatalf("diagnostic does not wrap PartialSolidWarning: %v", d)
	}
	if w.Bottom != 16 || w.Top != 17 {
		t.Errorf("expected ring lengths 16/17, got %d/%d", w.Bottom, w.Top)
	}

	// Only the 10 square, which stays a separate solid, gets side walls.
	walls := 0
	for i := range m.TriangleCount() {
		tri := m.Triangle(i)
		if tri[0].Y != tri[1].Y || tri[1].Y != tri[2].Y {
			walls++
		}
	}
	if walls != 8 {
		t.Errorf("expected 8 wall triangles, got %d", walls)
	}
}

func TestPartialSolidWarningMessage(t *testing.T) {
	w := &PartialSolidWarning{Outline: 3, Bottom: 10, Top: 4}
	want := "outline 3: bottom ring has 10 vertices, top ring 4; side walls skipped"
	if w.Error() != want {
		t.Errorf("Error() = %q", w.Error())
	}
}

// --- helpers ---

func motorMount(p *Plate) {
	p.AddCapsule(vecmath.Vec2{}, 30, 60, 0, 48)
	p.AddCircle(vecmath.Vec2{}, 8, 48)
	for i := range 4 {
		th := 2*math.Pi*float64(i)/4 + math.Pi/4
		p.AddCapsule(vecmath.Vec2{X: 12 * math.Cos(th), Y: 12 * math.Sin(th)}, 3, 6, th, 24)
	}
}

func toVerts(o Outline) []vecmath.Vec2 { return o }

func ring(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}

// netArea treats the first outline as the solid and the rest as holes.
func netArea(p *Plate) float64 {
	var area float64
	for i, o := range p.Outlines() {
		if len(o) < 3 {
			continue
		}
		a := triangulate.SignedArea(o, ring(len(o)))
		if i == 0 {
			area += a
		} else {
			area -= a
		}
	}
	return area
}

// unpairedEdges counts directed edges, by position, that lack an opposite
// edge. A closed, consistently wound mesh has none.
func unpairedEdges(m *kernel.Mesh) int {
	type edge struct{ a, b vecmath.Vec3 }
	count := map[edge]int{}
	for t := range m.TriangleCount() {
		tri := m.Triangle(t)
		for i := range 3 {
			count[edge{tri[i], tri[(i+1)%3]}]++
		}
	}
	n := 0
	for e, c := range count {
		if count[edge{e.b, e.a}] != c {
			n++
		}
	}
	return n
}
