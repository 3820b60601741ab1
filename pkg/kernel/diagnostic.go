package kernel

import "fmt"

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes.
const (
	CodeDegenerateOutline = "degenerate-outline"
	CodePartialSolid      = "partial-solid"
	CodeMissingKeyframes  = "missing-keyframes"
	CodeKernel            = "kernel"
	CodeInvalidPart       = "invalid-part"
)

// Diagnostic is a recoverable problem found while building a mesh. It never
// aborts the build; callers collect diagnostics next to the result.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Part     string   `json:"part,omitempty"`
	Outline  int      `json:"outline"` // -1 when not tied to one outline
	Err      error    `json:"-"`
}

func (d Diagnostic) Error() string {
	where := d.Part
	if d.Outline >= 0 {
		where = fmt.Sprintf("%s outline %d", d.Part, d.Outline)
	}
	if where == "" {
		return fmt.Sprintf("%s %s: %v", d.Severity, d.Code, d.Err)
	}
	return fmt.Sprintf("%s %s in %s: %v", d.Severity, d.Code, where, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

// WithPart returns copies of ds tagged with the part name.
func WithPart(ds []Diagnostic, part string) []Diagnostic {
	out := make([]Diagnostic, len(ds))
	for i, d := range ds {
		d.Part = part
		out[i] = d
	}
	return out
}
