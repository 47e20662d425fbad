package picking

import "github.com/Faultbox/m2view/pkg/math"

// Hit is the result of a pick.
type Hit struct {
	Index    int
	Distance float32
	Point    math.Vec3
}

// Nearest returns the closest of the spheres of the given radius around
// points that the ray hits.
func Nearest(r Ray, points []math.Vec3, radius float32) (Hit, bool) {
	best := Hit{Index: -1}
	for i, p := range points {
		t, ok := r.IntersectSphere(p, radius)
		if !ok || (best.Index >= 0 && t >= best.Distance) {
			continue
		}
		best = Hit{Index: i, Distance: t, Point: r.At(t)}
	}
	return best, best.Index >= 0
}

// BoneRadius sizes the pick sphere of bones relative to the model radius.
func BoneRadius(modelRadius float32) float32 {
	return max(modelRadius*0.03, 0.01)
}
