// Package sweep builds tubes by sweeping a circular cross-section through a
// series of keyframed scale, rotation and translation samples.
package sweep

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/vecmath"
)

var (
	ErrTooFewSections   = errors.New("tube needs at least 2 cross-sections")
	ErrTooFewRingPoints = errors.New("tube cross-section needs at least 3 points")
)

// Channel names used in errors.
const (
	ChannelScale       = "scale"
	ChannelRotation    = "rotation"
	ChannelTranslation = "translation"
)

// MissingKeyframesError reports a channel that was never given a key.
type MissingKeyframesError struct {
	Channel string
}

func (e *MissingKeyframesError) Error() string {
	return fmt.Sprintf("no %s keyframes", e.Channel)
}

// Tube is a swept solid. The cross-section is a ring of RingPoints points
// on a circle of diameter 1 in the local XY plane, repeated Sections times.
// Each section is scaled, rotated and translated by its channel samples,
// then the whole object is rotated by ObjectRotation and moved by
// ObjectTranslation.
type Tube struct {
	Name       string
	Sections   int
	RingPoints int

	Closed   bool // connect the last section back to the first
	CapStart bool
	CapEnd   bool

	Scale       Track[vecmath.Vec2]
	Rotation    Track[vecmath.Quat]
	Translation Track[vecmath.Vec3]

	ObjectRotation    vecmath.Quat
	ObjectTranslation vecmath.Vec3

	Material kernel.Material
}

// NewTube returns a tube with an identity object transform and no keys.
func NewTube(name string, sections, ringPoints int) *Tube {
	return &Tube{
		Name:           name,
		Sections:       sections,
		RingPoints:     ringPoints,
		ObjectRotation: vecmath.QuatIdentity(),
	}
}

// atTime converts a normalized 0..1 time into a section position.
func (t *Tube) atTime(time float64) float64 {
	return time * float64(t.Sections-1)
}

// AddScale keys the cross-section width and height at section index.
func (t *Tube) AddScale(index, w, h float64) {
	t.Scale.Add(index, vecmath.Vec2{X: w, Y: h})
}

// AddScaleAtTime keys the scale at normalized time (0 first, 1 last).
func (t *Tube) AddScaleAtTime(time, w, h float64) {
	t.AddScale(t.atTime(time), w, h)
}

// AddRotation keys the cross-section orientation at section index.
func (t *Tube) AddRotation(index float64, q vecmath.Quat) {
	t.Rotation.Add(index, q)
}

// AddRotationAtTime keys the rotation at normalized time.
func (t *Tube) AddRotationAtTime(time float64, q vecmath.Quat) {
	t.AddRotation(t.atTime(time), q)
}

// AddTranslation keys the cross-section centre at section index.
func (t *Tube) AddTranslation(index float64, p vecmath.Vec3) {
	t.Translation.Add(index, p)
}

// AddTranslationAtTime keys the translation at normalized time.
func (t *Tube) AddTranslationAtTime(time float64, p vecmath.Vec3) {
	t.AddTranslation(t.atTime(time), p)
}

// Keyframe sets any subset of the channels at one position.
type Keyframe struct {
	Position    float64
	AtTime      bool // Position is a normalized time instead of an index
	Scale       *vecmath.Vec2
	Rotation    *vecmath.Quat
	Translation *vecmath.Vec3
}

// AddKeyframe keys every channel k carries.
func (t *Tube) AddKeyframe(k Keyframe) {
	pos := k.Position
	if k.AtTime {
		pos = t.atTime(pos)
	}
	if k.Scale != nil {
		t.Scale.Add(pos, *k.Scale)
	}
	if k.Rotation != nil {
		t.Rotation.Add(pos, *k.Rotation)
	}
	if k.Translation != nil {
		t.Translation.Add(pos, *k.Translation)
	}
}

// Check reports structural problems that prevent Build.
func (t *Tube) Check() error {
	var errs []error
	if t.Sections < 2 {
		errs = append(errs, ErrTooFewSections)
	}
	if t.RingPoints < 3 {
		errs = append(errs, ErrTooFewRingPoints)
	}
	if t.Scale.Len() == 0 {
		errs = append(errs, &MissingKeyframesError{Channel: ChannelScale})
	}
	if t.Rotation.Len() == 0 {
		errs = append(errs, &MissingKeyframesError{Channel: ChannelRotation})
	}
	if t.Translation.Len() == 0 {
		errs = append(errs, &MissingKeyframesError{Channel: ChannelTranslation})
	}
	return errors.Join(errs...)
}

// SideTriangles returns the number of wall triangles Build emits.
func (t *Tube) SideTriangles() int {
	spans := t.Sections - 1
	if t.Closed {
		spans = t.Sections
	}
	return spans * t.RingPoints * 2
}

// sample resolves every channel at one section position.
func (t *Tube) sample(pos float64) (vecmath.Vec2, vecmath.Quat, vecmath.Vec3, error) {
	scale, err := t.Scale.Sample(pos, lerp2)
	if err != nil {
		return vecmath.Vec2{}, vecmath.Quat{}, vecmath.Vec3{}, fmt.Errorf("%s: %w", ChannelScale, err)
	}
	rot, err := t.Rotation.Sample(pos, slerp)
	if err != nil {
		return vecmath.Vec2{}, vecmath.Quat{}, vecmath.Vec3{}, fmt.Errorf("%s: %w", ChannelRotation, err)
	}
	trans, err := t.Translation.Sample(pos, lerp3)
	if err != nil {
		return vecmath.Vec2{}, vecmath.Quat{}, vecmath.Vec3{}, fmt.Errorf("%s: %w", ChannelTranslation, err)
	}
	return scale, rot, trans, nil
}

// Build sweeps the tube into a mesh. Section j, ring point i becomes vertex
// j*RingPoints+i.
func Build(t *Tube) (*kernel.Mesh, error) {
	if err := t.Check(); err != nil {
		return nil, fmt.Errorf("tube %q: %w", t.Name, err)
	}
	n, m := t.Sections, t.RingPoints

	ring := make([]vecmath.Vec3, m)
	for i := range ring {
		th := -2 * math.Pi * float64(i) / float64(m)
		ring[i] = vecmath.Vec3{X: math.Cos(th) * 0.5, Y: math.Sin(th) * 0.5}
	}

	objRot := t.ObjectRotation
	if objRot.IsZero() {
		objRot = vecmath.QuatIdentity()
	}

	mesh := &kernel.Mesh{Name: t.Name}
	for j := range n {
		scale, rot, trans, err := t.sample(float64(j))
		if err != nil {
			return nil, fmt.Errorf("tube %q: section %d: %w", t.Name, j, err)
		}
		s := vecmath.Vec3{X: scale.X, Y: scale.Y, Z: 1}
		for _, p := range ring {
			v := rot.Rotate(p.Mul(s)).Add(trans)
			mesh.AddVertex(objRot.Rotate(v).Add(t.ObjectTranslation))
		}
	}

	spans := n - 1
	if t.Closed {
		spans = n
	}
	for j := range spans {
		bottom := uint32(m * j)
		top := uint32(m * ((j + 1) % n))
		for il := range m {
			ir := (il + 1) % m
			bl, br := bottom+uint32(il), bottom+uint32(ir)
			tl, tr := top+uint32(il), top+uint32(ir)
			mesh.AddTriangle(br, bl, tl)
			mesh.AddTriangle(tl, tr, br)
		}
	}
	if t.CapStart {
		for i := 1; i < m-1; i++ {
			mesh.AddTriangle(0, uint32(i), uint32(i+1))
		}
	}
	if t.CapEnd {
		ofs := uint32(m * (n - 1))
		for i := 1; i < m-1; i++ {
			mesh.AddTriangle(ofs, ofs+uint32(i+1), ofs+uint32(i))
		}
	}

	mat := kernel.ResolveMaterial(t.Material, t.Name)
	mesh.Groups = []kernel.Group{{Name: t.Name, IndexCount: len(mesh.Indices), Material: mat}}
	return mesh, nil
}
