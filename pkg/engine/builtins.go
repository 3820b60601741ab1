package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/formwork/pkg/design"
	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/plate"
	"github.com/chazu/formwork/pkg/sweep"
	"github.com/chazu/formwork/pkg/vecmath"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms design script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: cap-start -> cap_start
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec2 wraps a vecmath.Vec2.
type sexpVec2 struct {
	vec vecmath.Vec2
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a vecmath.Vec3.
type sexpVec3 struct {
	vec vecmath.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpQuat wraps a rotation.
type sexpQuat struct {
	q vecmath.Quat
}

func (q *sexpQuat) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(quat %g %g %g %g)", q.q.X, q.q.Y, q.q.Z, q.q.W)
}
func (q *sexpQuat) Type() *zygo.RegisteredType { return nil }

// sexpColor wraps a kernel.Color.
type sexpColor struct {
	c kernel.Color
}

func (c *sexpColor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(rgb %g %g %g)", c.c.R, c.c.G, c.c.B)
}
func (c *sexpColor) Type() *zygo.RegisteredType { return nil }

// sexpMaterial wraps a kernel.Material so it can be passed between builtins.
type sexpMaterial struct {
	m kernel.Material
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material %q)", m.m.Name)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpOutline carries the points of one outline from a shape builtin to
// the plate that consumes it.
type sexpOutline struct {
	kind   string
	points []vecmath.Vec2
}

func (o *sexpOutline) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %d points)", o.kind, len(o.points))
}
func (o *sexpOutline) Type() *zygo.RegisteredType { return nil }

// sexpKey wraps a tube keyframe.
type sexpKey struct {
	key sweep.Keyframe
}

func (k *sexpKey) SexpString(ps *zygo.PrintState) string {
	if k.key.AtTime {
		return fmt.Sprintf("(keyframe :time %g)", k.key.Position)
	}
	return fmt.Sprintf("(keyframe :index %g)", k.key.Position)
}
func (k *sexpKey) Type() *zygo.RegisteredType { return nil }

// sexpPlace wraps one placement of a part.
type sexpPlace struct {
	inst design.Instance
}

func (p *sexpPlace) SexpString(ps *zygo.PrintState) string {
	t := p.inst.Translation
	return fmt.Sprintf("(place :translate (vec3 %g %g %g))", t.X, t.Y, t.Z)
}
func (p *sexpPlace) Type() *zygo.RegisteredType { return nil }

// sexpPartRef is returned by plate and tube.
type sexpPartRef struct {
	name string
	kind design.PartKind
}

func (p *sexpPartRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", p.kind, p.name)
}
func (p *sexpPartRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	fn         string
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(fn string, args []zygo.Sexp) kwArgs {
	result := kwArgs{fn: fn, kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// float returns the keyword's number, or def when it is absent.
func (a kwArgs) float(name string, def float64) (float64, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", a.fn, name, err)
	}
	return f, nil
}

// int returns the keyword's integer, or def when it is absent.
func (a kwArgs) int(name string, def int) (int, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	i, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", a.fn, name, err)
	}
	return i, nil
}

// bool returns the keyword's truth value, or def when it is absent. A
// keyword given without a value counts as true.
func (a kwArgs) bool(name string, def bool) (bool, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	if v == zygo.SexpNull {
		return true, nil
	}
	b, ok := v.(*zygo.SexpBool)
	if !ok {
		return false, fmt.Errorf("%s: %s: expected true or false, got %s", a.fn, name, v.SexpString(nil))
	}
	return b.Val, nil
}

// vec2 returns the keyword's vec2, or def when it is absent.
func (a kwArgs) vec2(name string, def vecmath.Vec2) (vecmath.Vec2, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	if p, ok := v.(*sexpVec2); ok {
		return p.vec, nil
	}
	return def, fmt.Errorf("%s: %s: expected vec2, got %s", a.fn, name, v.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer; floats must be whole.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (vecmath.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return vecmath.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toQuat extracts a rotation from a sexpQuat.
func toQuat(s zygo.Sexp) (vecmath.Quat, error) {
	if q, ok := s.(*sexpQuat); ok {
		return q.q, nil
	}
	return vecmath.Quat{}, fmt.Errorf("expected quat, got %T (%s)", s, s.SexpString(nil))
}

// toColor extracts a color from a sexpColor.
func toColor(s zygo.Sexp) (kernel.Color, error) {
	if c, ok := s.(*sexpColor); ok {
		return c.c, nil
	}
	return kernel.Color{}, fmt.Errorf("expected rgb color, got %T (%s)", s, s.SexpString(nil))
}

// toMaterial extracts a material from a sexpMaterial. A bare color is
// accepted as shorthand for a material with that diffuse color.
func toMaterial(s zygo.Sexp) (kernel.Material, error) {
	switch v := s.(type) {
	case *sexpMaterial:
		return v.m, nil
	case *sexpColor:
		return kernel.NewMaterial("", v.c), nil
	}
	return kernel.Material{}, fmt.Errorf("expected material, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// flatten expands lists and arrays among args so that scripts can pass
// generated collections of outlines, keys or placements.
func flatten(args []zygo.Sexp) ([]zygo.Sexp, error) {
	var out []zygo.Sexp
	for _, a := range args {
		switch a.(type) {
		case *zygo.SexpPair, *zygo.SexpArray:
			items, err := sexpListToSlice(a)
			if err != nil {
				return nil, err
			}
			inner, err := flatten(items)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		default:
			if a == zygo.SexpNull {
				continue
			}
			out = append(out, a)
		}
	}
	return out, nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all design builtins into a zygomys environment.
// The builtins append parts to d during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, d *design.Design) {
	registerMath(env)

	// -----------------------------------------------------------------------
	// (vec2 x y)
	// -----------------------------------------------------------------------
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := numbers(name, args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec2{vec: vecmath.Vec2{X: f[0], Y: f[1]}}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 x y z)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := numbers(name, args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: vecmath.Vec3{X: f[0], Y: f[1], Z: f[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (rgb r g b), channels in 0..1
	// -----------------------------------------------------------------------
	env.AddFunction("rgb", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := numbers(name, args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpColor{c: kernel.Color{R: f[0], G: f[1], B: f[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (quat (vec3 0 1 0) 90) rotates 90 degrees about the axis.
	// (quat) is the identity.
	// -----------------------------------------------------------------------
	env.AddFunction("quat", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return &sexpQuat{q: vecmath.QuatIdentity()}, nil
		}
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("quat requires an axis and an angle, got %d arguments", len(args))
		}
		axis, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("quat: axis: %w", err)
		}
		if axis.Length() == 0 {
			return zygo.SexpNull, fmt.Errorf("quat: axis must not be zero")
		}
		deg, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("quat: angle: %w", err)
		}
		return &sexpQuat{q: vecmath.QuatFromAxisAngle(axis, radians(deg))}, nil
	})

	// -----------------------------------------------------------------------
	// (material "steel" :diffuse (rgb 0.6 0.6 0.7) :specular (rgb 1 1 1)
	//           :shininess 40 :refraction 1.5)
	// -----------------------------------------------------------------------
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(name, args)
		matName := ""
		if len(pa.positional) > 0 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: name: %w", err)
			}
			matName = s
		}
		diffuse := kernel.Green
		if v, ok := pa.kw["diffuse"]; ok {
			c, err := toColor(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: diffuse: %w", err)
			}
			diffuse = c
		}
		m := kernel.NewMaterial(matName, diffuse)
		if v, ok := pa.kw["ambient"]; ok {
			c, err := toColor(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: ambient: %w", err)
			}
			m.Ambient = c
		}
		if v, ok := pa.kw["specular"]; ok {
			c, err := toColor(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: specular: %w", err)
			}
			m.Specular = c
		}
		var err error
		if m.Shininess, err = pa.float("shininess", m.Shininess); err != nil {
			return zygo.SexpNull, err
		}
		if m.Refraction, err = pa.float("refraction", m.Refraction); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMaterial{m: m}, nil
	})

	registerShapes(env)
	registerParts(env, d)
}

// registerMath adds the trigonometry scripts need to lay out patterns.
// Angles are in degrees, like every other angle in a script.
func registerMath(env *zygo.Zlisp) {
	unary := func(fn func(float64) float64) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			f, err := numbers(name, args, 1)
			if err != nil {
				return zygo.SexpNull, err
			}
			return &zygo.SexpFloat{Val: fn(f[0])}, nil
		}
	}
	env.AddFunction("sind", unary(func(d float64) float64 { return math.Sin(radians(d)) }))
	env.AddFunction("cosd", unary(func(d float64) float64 { return math.Cos(radians(d)) }))
	env.AddFunction("sqrt", unary(math.Sqrt))
}

// numbers extracts exactly n numeric arguments.
func numbers(fn string, args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires exactly %d arguments, got %d", fn, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// registerShapes installs the outline builtins. Each returns an outline
// value for plate to consume.
func registerShapes(env *zygo.Zlisp) {
	// -----------------------------------------------------------------------
	// (rect :at (vec2 0 0) :width 10 :height 5 :angle 30)
	// -----------------------------------------------------------------------
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(name, args)
		at, err := pa.vec2("at", vecmath.Vec2{})
		if err != nil {
			return zygo.SexpNull, err
		}
		w, err := pa.float("width", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		h, err := pa.float("height", w)
		if err != nil {
			return zygo.SexpNull, err
		}
		angle, err := pa.float("angle", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		if w <= 0 || h <= 0 {
			return zygo.SexpNull, fmt.Errorf("rect: width and height must be positive")
		}
		p := plate.New()
		p.AddRectangle(at, w, h, radians(angle))
		return &sexpOutline{kind: name, points: p.Outlines()[0]}, nil
	})

	// -----------------------------------------------------------------------
	// (circle :at (vec2 0 0) :diameter 8 :divisions 48)
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(name, args)
		at, err := pa.vec2("at", vecmath.Vec2{})
		if err != nil {
			return zygo.SexpNull, err
		}
		d, err := pa.float("diameter", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		div, err := pa.int("divisions", 48)
		if err != nil {
			return zygo.SexpNull, err
		}
		if d <= 0 {
			return zygo.SexpNull, fmt.Errorf("circle: diameter must be positive")
		}
		if div < 3 {
			return zygo.SexpNull, fmt.Errorf("circle: divisions must be at least 3, got %d", div)
		}
		p := plate.New()
		p.AddCircle(at, d, div)
		return &sexpOutline{kind: name, points: p.Outlines()[0]}, nil
	})

	// -----------------------------------------------------------------------
	// (capsule :at (vec2 0 0) :width 3 :length 6 :angle 45 :divisions 24)
	// -----------------------------------------------------------------------
	env.AddFunction("capsule", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(name, args)
		at, err := pa.vec2("at", vecmath.Vec2{})
		if err != nil {
			return zygo.SexpNull, err
		}
		w, err := pa.float("width", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		length, err := pa.float("length", w)
		if err != nil {
			return zygo.SexpNull, err
		}
		angle, err := pa.float("angle", 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		div, err := pa.int("divisions", 24)
		if err != nil {
			return zygo.SexpNull, err
		}
		if w <= 0 {
			return zygo.SexpNull, fmt.Errorf("capsule: width must be positive")
		}
		if div < 2 {
			return zygo.SexpNull, fmt.Errorf("capsule: divisions must be at least 2, got %d", div)
		}
		p := plate.New()
		p.AddCapsule(at, w, length, radians(angle), div)
		return &sexpOutline{kind: name, points: p.Outlines()[0]}, nil
	})

	// -----------------------------------------------------------------------
	// (polygon (vec2 0 0) (vec2 10 0) (vec2 0 10))
	// -----------------------------------------------------------------------
	env.AddFunction("polygon", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		items, err := flatten(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polygon: %w", err)
		}
		pts := make([]vecmath.Vec2, 0, len(items))
		for i, it := range items {
			v, ok := it.(*sexpVec2)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("polygon: point %d: expected vec2, got %s", i, it.SexpString(nil))
			}
			pts = append(pts, v.vec)
		}
		return &sexpOutline{kind: name, points: pts}, nil
	})
}

// registerParts installs the builtins that describe parts and add them to d.
func registerParts(env *zygo.Zlisp, d *design.Design) {
	// -----------------------------------------------------------------------
	// (keyframe :time 0.5 :scale (vec2 8 8) :rotate (quat ...) :translate (vec3 ...))
	// (keyframe :index 3 ...)
	// -----------------------------------------------------------------------
	env.AddFunction("keyframe", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(name, args)
		var k sweep.Keyframe
		_, hasIndex := pa.kw["index"]
		_, hasTime := pa.kw["time"]
		switch {
		case hasIndex && hasTime:
			return zygo.SexpNull, fmt.Errorf("keyframe: give either :index or :time, not both")
		case hasTime:
			t, err := pa.float("time", 0)
			if err != nil {
				return zygo.SexpNull, err
			}
			k.Position, k.AtTime = t, true
		default:
			i, err := pa.float("index", 0)
			if err != nil {
				return zygo.SexpNull, err
			}
			k.Position = i
		}
		if v, ok := pa.kw["scale"]; ok {
			s, ok := v.(*sexpVec2)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("keyframe: scale: expected vec2, got %s", v.SexpString(nil))
			}
			k.Scale = &s.vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			q, err := toQuat(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("keyframe: rotate: %w", err)
			}
			k.Rotation = &q
		}
		if v, ok := pa.kw["translate"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("keyframe: translate: %w", err)
			}
			k.Translation = &p
		}
		if k.Scale == nil && k.Rotation == nil && k.Translation == nil {
			return zygo.SexpNull, fmt.Errorf("keyframe: needs at least one of :scale, :rotate, :translate")
		}
		return &sexpKey{key: k}, nil
	})

	// -----------------------------------------------------------------------
	// (place :rotate (quat (vec3 0 1 0) 90) :translate (vec3 10 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(name, args)
		inst := design.Identity()
		if v, ok := pa.kw["rotate"]; ok {
			q, err := toQuat(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotate: %w", err)
			}
			inst.Rotation = q
		}
		if v, ok := pa.kw["translate"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: translate: %w", err)
			}
			inst.Translation = p
		}
		return &sexpPlace{inst: inst}, nil
	})

	// -----------------------------------------------------------------------
	// (plate "base" :bottom 0 :height 3 :material steel
	//   (capsule ...) (circle ...) (place ...))
	// -----------------------------------------------------------------------
	env.AddFunction("plate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(name, args)
		partName, rest, err := partHeader(name, pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		spec := &design.PlateSpec{Outlines: plate.New()}
		if spec.Bottom, err = pa.float("bottom", 0); err != nil {
			return zygo.SexpNull, err
		}
		if spec.Height, err = pa.float("height", 0); err != nil {
			return zygo.SexpNull, err
		}
		part := &design.Part{Name: partName, Kind: design.PartPlate, Plate: spec}
		if err := partMaterial(name, pa, part); err != nil {
			return zygo.SexpNull, err
		}
		for _, it := range rest {
			switch v := it.(type) {
			case *sexpOutline:
				spec.Outlines.AddOutline(v.points)
			case *sexpPlace:
				part.Instances = append(part.Instances, v.inst)
			default:
				return zygo.SexpNull, fmt.Errorf("plate %q: expected outline or place, got %s", partName, it.SexpString(nil))
			}
		}
		d.Add(part)
		return &sexpPartRef{name: partName, kind: design.PartPlate}, nil
	})

	// -----------------------------------------------------------------------
	// (tube "ring" :sections 96 :ring 24 :closed true :cap-start false
	//   :cap-end false :material steel (keyframe ...) (place ...))
	// -----------------------------------------------------------------------
	env.AddFunction("tube", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(name, args)
		partName, rest, err := partHeader(name, pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		sections, err := pa.int("sections", 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		ring, err := pa.int("ring", 24)
		if err != nil {
			return zygo.SexpNull, err
		}
		tube := sweep.NewTube(partName, sections, ring)
		if tube.Closed, err = pa.bool("closed", false); err != nil {
			return zygo.SexpNull, err
		}
		if tube.CapStart, err = pa.bool("cap-start", false); err != nil {
			return zygo.SexpNull, err
		}
		if tube.CapEnd, err = pa.bool("cap-end", false); err != nil {
			return zygo.SexpNull, err
		}
		part := &design.Part{Name: partName, Kind: design.PartTube, Tube: tube}
		if err := partMaterial(name, pa, part); err != nil {
			return zygo.SexpNull, err
		}
		tube.Material = part.Material
		for _, it := range rest {
			switch v := it.(type) {
			case *sexpKey:
				tube.AddKeyframe(v.key)
			case *sexpPlace:
				part.Instances = append(part.Instances, v.inst)
			default:
				return zygo.SexpNull, fmt.Errorf("tube %q: expected keyframe or place, got %s", partName, it.SexpString(nil))
			}
		}
		d.Add(part)
		return &sexpPartRef{name: partName, kind: design.PartTube}, nil
	})
}

// partHeader reads the part name and returns the flattened remaining
// positional arguments.
func partHeader(fn string, pa kwArgs) (string, []zygo.Sexp, error) {
	if len(pa.positional) < 1 {
		return "", nil, fmt.Errorf("%s requires a name argument", fn)
	}
	partName, err := toString(pa.positional[0])
	if err != nil {
		return "", nil, fmt.Errorf("%s: name: %w", fn, err)
	}
	rest, err := flatten(pa.positional[1:])
	if err != nil {
		return "", nil, fmt.Errorf("%s %q: %w", fn, partName, err)
	}
	return partName, rest, nil
}

// partMaterial applies the :material keyword, naming unnamed materials
// after the part.
func partMaterial(fn string, pa kwArgs, part *design.Part) error {
	v, ok := pa.kw["material"]
	if !ok {
		part.Material = kernel.DefaultMaterial(part.Name)
		return nil
	}
	m, err := toMaterial(v)
	if err != nil {
		return fmt.Errorf("%s %q: material: %w", fn, part.Name, err)
	}
	part.Material = kernel.ResolveMaterial(m, part.Name)
	return nil
}
