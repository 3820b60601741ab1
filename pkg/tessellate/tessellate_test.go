package tessellate_test

import (
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/chazu/formwork/pkg/design"
	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/kernel/native"
	"github.com/chazu/formwork/pkg/kernel/sdfx"
	"github.com/chazu/formwork/pkg/plate"
	"github.com/chazu/formwork/pkg/sweep"
	"github.com/chazu/formwork/pkg/tessellate"
	"github.com/chazu/formwork/pkg/vecmath"
)

// makePlate creates a w by w square plate part of height h.
func makePlate(name string, w, h float64) *design.Part {
	p := plate.New()
	p.AddRectangle(vecmath.Vec2{}, w, w, 0)
	return &design.Part{
		Name:  name,
		Kind:  design.PartPlate,
		Plate: &design.PlateSpec{Outlines: p, Height: h},
	}
}

// makeRod creates a straight capped tube of diameter 1 and length 10
// along Z.
func makeRod(name string) *design.Part {
	tube := sweep.NewTube(name, 2, 16)
	tube.CapStart, tube.CapEnd = true, true
	tube.AddScale(0, 1, 1)
	tube.AddRotation(0, vecmath.QuatIdentity())
	tube.AddTranslation(0, vecmath.Vec3{})
	tube.AddTranslation(1, vecmath.Vec3{Z: 10})
	return &design.Part{Name: name, Kind: design.PartTube, Tube: tube}
}

func TestNilKernel(t *testing.T) {
	_, err := tessellate.Tessellate(design.New(), nil)
	if !errors.Is(err, tessellate.ErrNilKernel) {
		t.Fatalf("expected ErrNilKernel, got %v", err)
	}
}

func TestNilDesign(t *testing.T) {
	res, err := tessellate.Tessellate(nil, native.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Meshes) != 0 || len(res.Diagnostics) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestSinglePlate(t *testing.T) {
	d := design.New()
	d.Add(makePlate("base", 10, 2))

	res, err := tessellate.Tessellate(d, native.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if len(res.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(res.Meshes))
	}
	m := res.Meshes[0]
	if m.Name != "base" {
		t.Errorf("mesh name = %q, want base", m.Name)
	}
	if m.TriangleCount() != 12 {
		t.Errorf("triangles = %d, want 12", m.TriangleCount())
	}
	if !scalar.EqualWithinAbs(m.Volume(), 200, 1e-9) {
		t.Errorf("volume = %v, want 200", m.Volume())
	}
	if m.Groups[0].Material != kernel.DefaultMaterial("base") {
		t.Errorf("material = %+v, want default", m.Groups[0].Material)
	}
}

func TestPartOrderAndInstances(t *testing.T) {
	d := design.New()
	leg := makePlate("leg", 2, 4)
	leg.Instances = []design.Instance{
		design.Identity(),
		{Rotation: vecmath.QuatFromAxisAngle(vecmath.Vec3{Y: 1}, math.Pi/2), Translation: vecmath.Vec3{X: 20}},
	}
	d.Add(leg)
	d.Add(makeRod("rod"))

	res, err := tessellate.Tessellate(d, native.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	want := []string{"leg.0", "leg.1", "rod"}
	if len(res.Meshes) != len(want) {
		t.Fatalf("expected %d meshes, got %d", len(want), len(res.Meshes))
	}
	for i, name := range want {
		if res.Meshes[i].Name != name {
			t.Errorf("mesh %d name = %q, want %q", i, res.Meshes[i].Name, name)
		}
		if g := res.Meshes[i].Groups[0].Name; g != name {
			t.Errorf("mesh %d group = %q, want %q", i, g, name)
		}
	}

	// Placement keeps the volume and moves the bounds.
	a, b := res.Meshes[0], res.Meshes[1]
	if !scalar.EqualWithinAbs(a.Volume(), b.Volume(), 1e-9) {
		t.Errorf("instance volumes differ: %v vs %v", a.Volume(), b.Volume())
	}
	lo, hi := b.Bounds()
	if !scalar.EqualWithinAbs((lo.X+hi.X)/2, 20, 1e-9) {
		t.Errorf("instance 1 centre x = %v, want 20", (lo.X+hi.X)/2)
	}

	// Straight capped rod: area of the 16-gon times length.
	rod := res.Meshes[2]
	wantTris := 16*2 + 2*(16-2)
	if rod.TriangleCount() != wantTris {
		t.Errorf("rod triangles = %d, want %d", rod.TriangleCount(), wantTris)
	}
	area := 0.5 * 16 * 0.25 * math.Sin(2*math.Pi/16)
	if !scalar.EqualWithinAbs(rod.Volume(), area*10, 1e-9) {
		t.Errorf("rod volume = %v, want %v", rod.Volume(), area*10)
	}
}

func TestTessellateDoesNotMutateDesign(t *testing.T) {
	d := design.New()
	rod := makeRod("rod")
	d.Add(rod)

	if _, err := tessellate.Tessellate(d, native.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rod.Tube.Material.IsZero() {
		t.Errorf("tube material was modified: %+v", rod.Tube.Material)
	}
	if len(rod.Instances) != 0 {
		t.Errorf("instances were modified: %v", rod.Instances)
	}
}

func TestDiagnostics(t *testing.T) {
	tests := []struct {
		name       string
		part       *design.Part
		wantCode   string
		wantMeshes int
	}{
		{
			name: "zero height plate",
			part: func() *design.Part {
				p := makePlate("flat", 10, 0)
				return p
			}(),
			wantCode:   kernel.CodeInvalidPart,
			wantMeshes: 1,
		},
		{
			name: "tube without keyframes",
			part: &design.Part{
				Name: "bare",
				Kind: design.PartTube,
				Tube: sweep.NewTube("bare", 4, 8),
			},
			wantCode:   kernel.CodeMissingKeyframes,
			wantMeshes: 1,
		},
		{
			name: "clockwise outline",
			part: func() *design.Part {
				p := plate.New()
				p.AddOutline([]vecmath.Vec2{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}})
				return &design.Part{
					Name:  "cw",
					Kind:  design.PartPlate,
					Plate: &design.PlateSpec{Outlines: p, Height: 2},
				}
			}(),
			wantCode: kernel.CodeDegenerateOutline,
			// The walls still build.
			wantMeshes: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := design.New()
			d.Add(makePlate("ok", 10, 2))
			d.Add(tt.part)

			res, err := tessellate.Tessellate(d, native.New())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Meshes) != tt.wantMeshes {
				t.Errorf("expected %d meshes, got %d", tt.wantMeshes, len(res.Meshes))
			}
			if res.Meshes[0].Name != "ok" {
				t.Errorf("valid part should still build, got %q", res.Meshes[0].Name)
			}
			errs := res.Errors()
			if len(errs) == 0 {
				t.Fatal("expected error diagnostics")
			}
			for _, dg := range errs {
				if dg.Code != tt.wantCode {
					t.Errorf("code = %q, want %q (%v)", dg.Code, tt.wantCode, dg)
				}
				if dg.Part != tt.part.Name {
					t.Errorf("part = %q, want %q", dg.Part, tt.part.Name)
				}
			}
		})
	}
}

// failingKernel returns an error for every profile.
type failingKernel struct{}

func (failingKernel) Name() string { return "failing" }

func (failingKernel) Extrude(p kernel.Profile) (*kernel.Mesh, []kernel.Diagnostic, error) {
	return nil, nil, errors.New("boom")
}

func TestKernelErrorBecomesDiagnostic(t *testing.T) {
	d := design.New()
	d.Add(makePlate("base", 10, 2))
	d.Add(makeRod("rod"))

	res, err := tessellate.Tessellate(d, failingKernel{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Meshes) != 1 || res.Meshes[0].Name != "rod" {
		t.Fatalf("expected only the tube mesh, got %d meshes", len(res.Meshes))
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", res.Diagnostics)
	}
	dg := res.Diagnostics[0]
	if dg.Code != kernel.CodeKernel || dg.Part != "base" {
		t.Errorf("unexpected diagnostic %+v", dg)
	}
	if dg.Error() != "error kernel in base: failing kernel: boom" {
		t.Errorf("Error() = %q", dg.Error())
	}
}

func TestLogsSkippedParts(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := design.New()
	d.Add(makePlate("flat", 10, 0))
	d.Add(makePlate("base", 10, 2))

	if _, err := tessellate.Tessellate(d, native.New(), tessellate.WithLogger(zap.New(core))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := logs.FilterMessage("skipping invalid part").Len(); n != 1 {
		t.Errorf("expected 1 skip log, got %d", n)
	}
	if n := logs.FilterMessage("built part").Len(); n != 1 {
		t.Errorf("expected 1 build log, got %d", n)
	}
}

func TestSdfxKernelMatchesNative(t *testing.T) {
	if testing.Short() {
		t.Skip("marching cubes is slow")
	}
	d := design.New()
	d.Add(makePlate("base", 10, 2))

	want, err := tessellate.Tessellate(d, native.New())
	if err != nil {
		t.Fatalf("native: %v", err)
	}
	got, err := tessellate.Tessellate(d, sdfx.New(100))
	if err != nil {
		t.Fatalf("sdfx: %v", err)
	}
	if len(got.Meshes) != 1 {
		t.Fatalf("expected 1 sdfx mesh, got %d", len(got.Meshes))
	}
	wv, gv := want.Meshes[0].Volume(), got.Meshes[0].Volume()
	if math.Abs(gv-wv)/wv > 0.05 {
		t.Errorf("sdfx volume %v differs from native %v by more than 5%%", gv, wv)
	}
}
