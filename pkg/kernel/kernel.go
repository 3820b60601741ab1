// Package kernel defines the abstract geometry kernel interface and the
// mesh type every stage of the pipeline produces. Implementations (native,
// sdfx) turn extrusion profiles into meshes behind this interface, which
// lets the tessellator swap backends without changing the rest of the
// system.
package kernel

import "github.com/chazu/formwork/pkg/vecmath"

// Profile describes one plate extrusion: a set of outlines in the XY plane
// extruded upward from Bottom by Height. Outlines nested inside another
// outline become holes, nested inside a hole become islands, and so on.
type Profile struct {
	Name     string
	Outlines [][]vecmath.Vec2
	Bottom   float64
	Height   float64
	Material Material
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Name identifies the backend in logs and configuration.
	Name() string

	// Extrude builds the solid for p. Recoverable problems (degenerate
	// outlines, skipped side walls) come back as diagnostics next to a
	// usable mesh; the error is reserved for failures that leave no mesh.
	Extrude(p Profile) (*Mesh, []Diagnostic, error)
}
