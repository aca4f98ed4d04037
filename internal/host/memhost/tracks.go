package memhost

import (
	"slices"

	"github.com/Faultbox/usdz-export/pkg/math"
)

// Key is a keyframed value.
type Key[T any] struct {
	Frame int
	Value T
}

// Track is a keyframe list sorted by frame.
type Track[T any] []Key[T]

// at evaluates the track at frame. Before the first key and after the last
// the nearest key holds; between keys the value is mixed by mix.
func (tr Track[T]) at(frame float64, fallback T, mix func(a, b T, t float64) T) T {
	if len(tr) == 0 {
		return fallback
	}
	if len(tr) == 1 {
		return tr[0].Value
	}

	var prev, next int
	for i := range tr {
		if float64(tr[i].Frame) > frame {
			next = i
			break
		}
		prev = i
		next = i
	}
	if prev == next {
		return tr[prev].Value
	}

	k0, k1 := tr[prev], tr[next]
	t := 0.0
	if k1.Frame != k0.Frame {
		t = (frame - float64(k0.Frame)) / float64(k1.Frame-k0.Frame)
	}
	return mix(k0.Value, k1.Value, t)
}

func sortKeys[T any](tr Track[T]) {
	slices.SortStableFunc(tr, func(a, b Key[T]) int { return a.Frame - b.Frame })
}

func lerpVec3(a, b math.Vec3, t float64) math.Vec3 { return a.Lerp(b, t) }

func slerp(a, b math.Quat, t float64) math.Quat { return a.Slerp(b, t) }

// TRS is an animatable location, rotation and scale. Static values are used
// for any channel without keys.
type TRS struct {
	Location math.Vec3
	Rotation math.Quat
	Scale    math.Vec3

	LocationKeys Track[math.Vec3]
	RotationKeys Track[math.Quat]
	ScaleKeys    Track[math.Vec3]
}

// IdentityTRS returns a transform with no offset, rotation or scaling.
func IdentityTRS() TRS {
	return TRS{Rotation: math.QuatIdentity(), Scale: math.Vec3{X: 1, Y: 1, Z: 1}}
}

// Eval returns the channel values at frame.
func (t *TRS) Eval(frame int) (math.Vec3, math.Quat, math.Vec3) {
	f := float64(frame)
	return t.LocationKeys.at(f, t.Location, lerpVec3),
		t.RotationKeys.at(f, t.Rotation, slerp),
		t.ScaleKeys.at(f, t.Scale, lerpVec3)
}

// Matrix returns the composed transform at frame.
func (t *TRS) Matrix(frame int) math.Mat4 {
	loc, rot, scale := t.Eval(frame)
	return math.Compose(loc, rot, scale)
}

// Animated reports whether any channel has keys.
func (t *TRS) Animated() bool {
	return len(t.LocationKeys) > 0 || len(t.RotationKeys) > 0 || len(t.ScaleKeys) > 0
}
