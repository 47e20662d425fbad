package anim

import (
	"sort"

	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

// LocalAnimatedValue is a non-blended curve over a normalized [0,1] life
// fraction. It carries no sequence or global clock.
type LocalAnimatedValue[T any] struct {
	times  []float32
	values []T
	def    T
	lerp   Lerp[T] // nil means step
}

// NewLocal returns a linearly interpolated curve.
func NewLocal[T any](track m2.LocalTrack[T], def T, lerp Lerp[T]) LocalAnimatedValue[T] {
	return LocalAnimatedValue[T]{times: track.Times, values: track.Values, def: def, lerp: lerp}
}

// NewLocalStep returns a curve that holds each keyframe until the next.
func NewLocalStep[T any](track m2.LocalTrack[T], def T) LocalAnimatedValue[T] {
	return LocalAnimatedValue[T]{times: track.Times, values: track.Values, def: def}
}

// Len returns the number of keyframes.
func (v *LocalAnimatedValue[T]) Len() int {
	return len(v.times)
}

// Value samples the curve at life fraction f.
func (v *LocalAnimatedValue[T]) Value(f float32) T {
	n := len(v.times)
	if n == 0 || len(v.values) < n {
		return v.def
	}
	if n == 1 || f <= v.times[0] {
		return v.values[0]
	}
	if f >= v.times[n-1] {
		return v.values[n-1]
	}

	hi := sort.Search(n, func(i int) bool { return v.times[i] > f })
	lo := hi - 1
	if v.lerp == nil {
		return v.values[lo]
	}
	return v.lerp(v.values[lo], v.values[hi], coefficient(v.times[lo], v.times[hi], f))
}

// Gradient is a three-stop color ramp (birth, middle, death) that can stand
// in for a particle emitter's color curve.
type Gradient [3]math.Vec3

// At samples the gradient at life fraction f with the middle stop at mid.
func (g Gradient) At(f, mid float32) math.Vec3 {
	f = math.Clamp01(f)
	if mid <= 0 || mid >= 1 {
		mid = 0.5
	}
	if f <= mid {
		return g[0].Lerp(g[1], f/mid)
	}
	return g[1].Lerp(g[2], (f-mid)/(1-mid))
}
