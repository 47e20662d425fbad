package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got %+v", q)
	}
}

func TestQuatNormalize(t *testing.T) {
	n := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()
	length := float32(math.Sqrt(float64(n.Dot(n))))
	if abs(length-1) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
	if got := (Quat{}).Normalize(); got != QuatIdentity() {
		t.Errorf("zero quaternion should normalize to identity, got %+v", got)
	}
}

func TestQuatLerpHalfway(t *testing.T) {
	q90 := QuatFromAxisAngle(Vec3{0, 0, 1}, float32(math.Pi/2))
	mid := QuatIdentity().Lerp(q90, 0.5)
	// Halfway between identity and a 90 degree turn points at 45 degrees.
	x := mid.ToMat4().TransformDirection(Vec3{1, 0, 0})
	angle := math.Atan2(float64(x.Y), float64(x.X)) * 180 / math.Pi
	if math.Abs(angle-45) > 0.01 {
		t.Errorf("lerp midpoint angle = %v, want 45", angle)
	}
}

func TestQuatConjugate(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 0, 1}, 0.5)
	m := q.ToMat4().Mul(q.Conjugate().ToMat4())
	if !m.ApproxEqual(Identity(), 1e-5) {
		t.Errorf("q * conj(q) should be identity, got %v", m)
	}
}

func TestQuatToMat4Identity(t *testing.T) {
	if m := QuatIdentity().ToMat4(); !m.ApproxEqual(Identity(), 1e-6) {
		t.Errorf("identity quat should produce identity matrix, got %v", m)
	}
}
