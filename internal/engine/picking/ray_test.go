package picking

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/m2view/pkg/math"
)

func approx(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-3
}

func TestScreenToRayCenter(t *testing.T) {
	view := math.LookAt(math.Vec3{X: 10}, math.Vec3{}, math.Vec3{Z: 1})
	proj := math.Perspective(gomath.Pi/4, 1, 0.1, 100)
	inv := proj.Mul(view).Inverse()

	r := ScreenToRay(50, 50, 100, 100, inv)
	if !approx(r.Direction.X, -1) || !approx(r.Direction.Y, 0) || !approx(r.Direction.Z, 0) {
		t.Errorf("Direction = %+v, want (-1,0,0)", r.Direction)
	}
	if !approx(r.Origin.Y, 0) || !approx(r.Origin.Z, 0) || r.Origin.X > 10 {
		t.Errorf("Origin = %+v", r.Origin)
	}
}

func TestIntersectPlaneZ(t *testing.T) {
	r := Ray{Origin: math.Vec3{X: 1, Y: 2, Z: 5}, Direction: math.Vec3{Z: -1}}
	p, ok := r.IntersectPlaneZ(0)
	if !ok || p != (math.Vec3{X: 1, Y: 2, Z: 0}) {
		t.Errorf("IntersectPlaneZ = %+v, %v", p, ok)
	}

	if _, ok := r.IntersectPlaneZ(10); ok {
		t.Error("plane behind the ray should miss")
	}
	flat := Ray{Direction: math.Vec3{X: 1}}
	if _, ok := flat.IntersectPlaneZ(0); ok {
		t.Error("parallel ray should miss")
	}
}

func TestIntersectAABB(t *testing.T) {
	box := NewAABB(math.Vec3{X: 1, Y: 1, Z: 1}, math.Vec3{X: -1, Y: -1, Z: -1})

	tests := []struct {
		name string
		ray  Ray
		want float32
		hit  bool
	}{
		{"front", Ray{Origin: math.Vec3{X: -5}, Direction: math.Vec3{X: 1}}, 4, true},
		{"inside", Ray{Direction: math.Vec3{Y: 1}}, 1, true},
		{"miss", Ray{Origin: math.Vec3{X: -5, Y: 3}, Direction: math.Vec3{X: 1}}, 0, false},
		{"behind", Ray{Origin: math.Vec3{X: 5}, Direction: math.Vec3{X: 1}}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := tt.ray.IntersectAABB(box)
			if hit != tt.hit || (hit && !approx(got, tt.want)) {
				t.Errorf("IntersectAABB = %v, %v; want %v, %v", got, hit, tt.want, tt.hit)
			}
		})
	}
}

func TestIntersectSphere(t *testing.T) {
	r := Ray{Origin: math.Vec3{X: -5}, Direction: math.Vec3{X: 1}}
	if d, ok := r.IntersectSphere(math.Vec3{}, 1); !ok || !approx(d, 4) {
		t.Errorf("IntersectSphere = %v, %v; want 4", d, ok)
	}
	if _, ok := r.IntersectSphere(math.Vec3{Y: 3}, 1); ok {
		t.Error("offset sphere should miss")
	}
	inside := Ray{Direction: math.Vec3{X: 1}}
	if d, ok := inside.IntersectSphere(math.Vec3{}, 2); !ok || !approx(d, 2) {
		t.Errorf("from inside = %v, %v; want 2", d, ok)
	}
}

func TestNearest(t *testing.T) {
	r := Ray{Origin: math.Vec3{X: -10}, Direction: math.Vec3{X: 1}}
	points := []math.Vec3{{X: 5}, {X: -2}, {X: 0, Y: 4}}

	hit, ok := Nearest(r, points, 0.5)
	if !ok || hit.Index != 1 {
		t.Fatalf("Nearest = %+v, %v; want index 1", hit, ok)
	}
	if !approx(hit.Distance, 7.5) || !approx(hit.Point.X, -2.5) {
		t.Errorf("hit = %+v", hit)
	}

	if _, ok := Nearest(r, nil, 1); ok {
		t.Error("no points should not hit")
	}
}
