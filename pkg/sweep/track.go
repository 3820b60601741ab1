package sweep

import (
	"cmp"
	"errors"
	"slices"

	"github.com/chazu/formwork/pkg/vecmath"
)

// ErrEmptyTrack is returned when sampling a track that has no keys.
var ErrEmptyTrack = errors.New("track has no keys")

// Key is one sample of a channel at a cross-section position.
type Key[T any] struct {
	Position float64
	Value    T
}

// Track is a sparse list of keys kept sorted by position. Keys at equal
// positions keep their insertion order.
type Track[T any] struct {
	keys []Key[T]
}

// Add inserts a key.
func (tr *Track[T]) Add(position float64, v T) {
	tr.keys = append(tr.keys, Key[T]{Position: position, Value: v})
	slices.SortStableFunc(tr.keys, func(a, b Key[T]) int {
		return cmp.Compare(a.Position, b.Position)
	})
}

// Clear removes all keys.
func (tr *Track[T]) Clear() {
	tr.keys = nil
}

// Len returns the number of keys.
func (tr *Track[T]) Len() int {
	return len(tr.keys)
}

// Keys returns a copy of the keys in position order.
func (tr *Track[T]) Keys() []Key[T] {
	return slices.Clone(tr.keys)
}

// Sample returns the channel value at position. Outside the covered range
// it clamps to the nearest key; between two keys it blends them with mix.
func (tr *Track[T]) Sample(position float64, mix func(a, b T, t float64) T) (T, error) {
	var zero T
	n := len(tr.keys)
	if n == 0 {
		return zero, ErrEmptyTrack
	}
	if position <= tr.keys[0].Position {
		return tr.keys[0].Value, nil
	}
	if position >= tr.keys[n-1].Position {
		return tr.keys[n-1].Value, nil
	}
	for i := 0; i < n-1; i++ {
		a, b := tr.keys[i], tr.keys[i+1]
		if a.Position <= position && position <= b.Position {
			if b.Position == a.Position {
				return a.Value, nil
			}
			return mix(a.Value, b.Value, (position-a.Position)/(b.Position-a.Position)), nil
		}
	}
	return tr.keys[n-1].Value, nil
}

func lerp2(a, b vecmath.Vec2, t float64) vecmath.Vec2 { return a.Lerp(b, t) }

func lerp3(a, b vecmath.Vec3, t float64) vecmath.Vec3 { return a.Lerp(b, t) }

func slerp(a, b vecmath.Quat, t float64) vecmath.Quat { return a.Slerp(b, t) }
