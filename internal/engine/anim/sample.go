// Package anim implements keyframe playback: per-model animation state with
// variation selection and crossfading, track sampling, and the lightweight
// local curves used by particles and ribbons.
package anim

import (
	"sort"

	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

// Lerp interpolates between two values of T by t in [0,1].
type Lerp[T any] func(a, b T, t float32) T

// LerpFloat interpolates scalars.
func LerpFloat(a, b, t float32) float32 { return a + t*(b-a) }

// LerpVec2 interpolates 2D vectors.
func LerpVec2(a, b math.Vec2, t float32) math.Vec2 { return a.Lerp(b, t) }

// LerpVec3 interpolates 3D vectors.
func LerpVec3(a, b math.Vec3, t float32) math.Vec3 { return a.Lerp(b, t) }

// LerpQuat interpolates quaternions component-wise (no slerp).
func LerpQuat(a, b math.Quat, t float32) math.Quat { return a.Lerp(b, t) }

// sampleKeys evaluates a keyframe array at time t. Zero keys yield def,
// one key is constant, and times outside the key range clamp to the ends.
func sampleKeys[T any](times []uint32, values []T, interp m2.Interpolation, t float32, lerp Lerp[T], def T) T {
	switch len(times) {
	case 0:
		return def
	case 1:
		return values[0]
	}

	last := len(times) - 1
	if t <= float32(times[0]) {
		return values[0]
	}
	if t >= float32(times[last]) {
		return values[last]
	}

	hi := sort.Search(len(times), func(i int) bool { return float32(times[i]) > t })
	lo := hi - 1
	if interp == m2.InterpolationNone {
		return values[lo]
	}
	return lerp(values[lo], values[hi], coefficient(float32(times[lo]), float32(times[hi]), t))
}

// coefficient returns how far t lies between t0 and t1, or 0 for an empty span.
func coefficient(t0, t1, t float32) float32 {
	span := t1 - t0
	if span <= 0 {
		return 0
	}
	return math.Clamp01((t - t0) / span)
}
