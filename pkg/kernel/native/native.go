// Package native implements kernel.Kernel with the exact ear-clipping
// extruder in pkg/plate.
package native

import (
	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/plate"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// Kernel extrudes profiles into exact polygonal solids.
type Kernel struct{}

// New returns a native kernel.
func New() *Kernel {
	return &Kernel{}
}

func (k *Kernel) Name() string { return "native" }

// Extrude builds the profile with plate.Extrude. It never fails outright;
// every problem is a diagnostic tagged with the profile name.
func (k *Kernel) Extrude(p kernel.Profile) (*kernel.Mesh, []kernel.Diagnostic, error) {
	outlines := make([]plate.Outline, len(p.Outlines))
	for i, o := range p.Outlines {
		outlines[i] = o
	}
	m, diags := plate.Extrude(outlines, plate.Extrusion{
		Name:     p.Name,
		Bottom:   p.Bottom,
		Height:   p.Height,
		Material: p.Material,
	})
	return m, kernel.WithPart(diags, p.Name), nil
}
