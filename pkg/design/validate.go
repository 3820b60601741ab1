package design

import (
	"errors"
	"fmt"

	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/sweep"
)

// ValidationSeverity indicates whether a validation finding blocks
// tessellation or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks tessellation of the part
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Part     string             // which part has the problem (empty if design-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
	Code     string             // diagnostic code, empty for a generic finding
}

func (e ValidationError) Error() string {
	if e.Part == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] part %s: %s", e.Severity, e.Part, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking errors were found.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Blocked reports whether the named part has a blocking error.
func (r ValidationResult) Blocked(part string) bool {
	for _, e := range r.Errors {
		if e.Part == part {
			return true
		}
	}
	return false
}

// Validate checks every part of the design. It is read-only and never
// mutates the design.
func Validate(d *Design) ValidationResult {
	var findings []ValidationError
	findings = append(findings, validateNames(d)...)
	for _, p := range d.Parts {
		switch p.Kind {
		case PartPlate:
			findings = append(findings, validatePlate(p)...)
		case PartTube:
			findings = append(findings, validateTube(p)...)
		default:
			findings = append(findings, ValidationError{
				Part:     p.Name,
				Message:  fmt.Sprintf("unknown part kind %d", int(p.Kind)),
				Severity: SeverityError,
			})
		}
	}

	var result ValidationResult
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, f)
		} else {
			result.Errors = append(result.Errors, f)
		}
	}
	return result
}

// validateNames reports empty and duplicate part names.
func validateNames(d *Design) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, p := range d.Parts {
		if p.Name == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("part %d has an empty name", i),
				Severity: SeverityError,
			})
			continue
		}
		if seen[p.Name] {
			errs = append(errs, ValidationError{
				Part:     p.Name,
				Message:  "duplicate part name",
				Severity: SeverityError,
			})
		}
		seen[p.Name] = true
	}
	return errs
}

func validatePlate(p *Part) []ValidationError {
	spec := p.Plate
	if spec == nil || spec.Outlines == nil {
		return []ValidationError{{Part: p.Name, Message: "plate has no outlines", Severity: SeverityError}}
	}

	var errs []ValidationError
	if spec.Height <= 0 {
		errs = append(errs, ValidationError{
			Part:     p.Name,
			Message:  fmt.Sprintf("height must be positive, got %g", spec.Height),
			Severity: SeverityError,
		})
	}
	valid := 0
	for i, o := range spec.Outlines.Outlines() {
		if len(o) < 3 {
			errs = append(errs, ValidationError{
				Part:     p.Name,
				Message:  fmt.Sprintf("outline %d has %d points and is ignored", i, len(o)),
				Severity: SeverityWarning,
			})
			continue
		}
		valid++
	}
	if valid == 0 {
		errs = append(errs, ValidationError{
			Part:     p.Name,
			Message:  "plate has no outline with at least 3 points",
			Severity: SeverityError,
		})
	}
	return errs
}

func validateTube(p *Part) []ValidationError {
	if p.Tube == nil {
		return []ValidationError{{Part: p.Name, Message: "tube has no definition", Severity: SeverityError}}
	}
	var errs []ValidationError
	for _, err := range unjoin(p.Tube.Check()) {
		var missing *sweep.MissingKeyframesError
		e := ValidationError{Part: p.Name, Message: err.Error(), Severity: SeverityError}
		if errors.As(err, &missing) {
			e.Message = fmt.Sprintf("%s channel has no keyframes", missing.Channel)
			e.Code = kernel.CodeMissingKeyframes
		}
		errs = append(errs, e)
	}
	return errs
}

// unjoin splits an errors.Join result back into its parts.
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
