// Package tessellate turns a design into triangle meshes using a geometry
// kernel. One mesh is produced per placed instance of each part.
package tessellate

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/formwork/pkg/design"
	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/sweep"
	"github.com/chazu/formwork/pkg/vecmath"
)

// ErrNilKernel is returned when Tessellate is called without a kernel.
var ErrNilKernel = errors.New("tessellate: nil kernel")

// Result holds the meshes in part declaration order and every diagnostic
// raised while building them.
type Result struct {
	Meshes      []*kernel.Mesh
	Diagnostics []kernel.Diagnostic
}

// Errors returns the diagnostics with error severity.
func (r Result) Errors() []kernel.Diagnostic {
	var out []kernel.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == kernel.SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Option configures Tessellate.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger logs per-part progress and diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Tessellate validates d and builds every part that validation does not
// block. Plates go through k, tubes through sweep.Build. Problems with a
// part become diagnostics and never stop the other parts from building.
// The design is never mutated.
func Tessellate(d *design.Design, k kernel.Kernel, opts ...Option) (Result, error) {
	if k == nil {
		return Result{}, ErrNilKernel
	}
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var res Result
	if d == nil {
		return res, nil
	}

	validation := design.Validate(d)
	res.Diagnostics = append(res.Diagnostics, validationDiagnostics(validation)...)

	for _, p := range d.Parts {
		if p.Name == "" || validation.Blocked(p.Name) {
			o.log.Warn("skipping invalid part", zap.String("part", p.Name))
			continue
		}
		mesh, diags := buildPart(p, k)
		res.Diagnostics = append(res.Diagnostics, diags...)
		for _, dg := range diags {
			o.log.Warn("diagnostic", zap.String("part", p.Name), zap.Error(dg))
		}
		if mesh == nil || mesh.IsEmpty() {
			continue
		}
		placements := p.Placements()
		for i, inst := range placements {
			m := mesh.Transform(inst.Rotation, inst.Translation)
			if len(placements) > 1 {
				m.Name = fmt.Sprintf("%s.%d", p.Name, i)
				for g := range m.Groups {
					m.Groups[g].Name = m.Name
				}
			}
			res.Meshes = append(res.Meshes, m)
		}
		o.log.Debug("built part",
			zap.String("part", p.Name),
			zap.String("kind", p.Kind.String()),
			zap.String("kernel", k.Name()),
			zap.Int("triangles", mesh.TriangleCount()),
			zap.Int("instances", len(placements)),
		)
	}
	return res, nil
}

// buildPart produces the untransformed mesh of one part.
func buildPart(p *design.Part, k kernel.Kernel) (*kernel.Mesh, []kernel.Diagnostic) {
	switch p.Kind {
	case design.PartPlate:
		spec := p.Plate
		outlines := spec.Outlines.Outlines()
		profile := kernel.Profile{
			Name:     p.Name,
			Outlines: make([][]vecmath.Vec2, len(outlines)),
			Bottom:   spec.Bottom,
			Height:   spec.Height,
			Material: p.Material,
		}
		for i, o := range outlines {
			profile.Outlines[i] = o
		}
		mesh, diags, err := k.Extrude(profile)
		diags = kernel.WithPart(diags, p.Name)
		if err != nil {
			diags = append(diags, kernel.Diagnostic{
				Severity: kernel.SeverityError,
				Code:     kernel.CodeKernel,
				Part:     p.Name,
				Outline:  -1,
				Err:      fmt.Errorf("%s kernel: %w", k.Name(), err),
			})
			return nil, diags
		}
		return mesh, diags

	case design.PartTube:
		t := *p.Tube
		if t.Material.IsZero() {
			t.Material = p.Material
		}
		mesh, err := sweep.Build(&t)
		if err != nil {
			return nil, []kernel.Diagnostic{{
				Severity: kernel.SeverityError,
				Code:     kernel.CodeKernel,
				Part:     p.Name,
				Outline:  -1,
				Err:      err,
			}}
		}
		return mesh, nil
	}
	return nil, []kernel.Diagnostic{{
		Severity: kernel.SeverityError,
		Code:     kernel.CodeInvalidPart,
		Part:     p.Name,
		Outline:  -1,
		Err:      fmt.Errorf("unsupported part kind %s", p.Kind),
	}}
}

// validationDiagnostics reports validation findings as diagnostics so
// callers see one list.
func validationDiagnostics(v design.ValidationResult) []kernel.Diagnostic {
	var out []kernel.Diagnostic
	add := func(sev kernel.Severity, es []design.ValidationError) {
		for _, e := range es {
			code := e.Code
			if code == "" {
				code = kernel.CodeInvalidPart
			}
			out = append(out, kernel.Diagnostic{
				Severity: sev,
				Code:     code,
				Part:     e.Part,
				Outline:  -1,
				Err:      errors.New(e.Message),
			})
		}
	}
	add(kernel.SeverityError, v.Errors)
	add(kernel.SeverityWarning, v.Warnings)
	return out
}
