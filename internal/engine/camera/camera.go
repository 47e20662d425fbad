// Package camera provides the orbit camera of the model viewer.
package camera

import (
	gomath "math"

	"github.com/Faultbox/m2view/pkg/math"
)

// Models are Z-up.
var worldUp = math.Vec3{Z: 1}

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance float32 // Distance from center
	Pitch    float32 // Elevation above the XY plane, radians
	Yaw      float32 // Rotation around Z, radians

	// Projection
	FovY      float32
	NearPlane float32
	FarPlane  float32

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        10.0,
		Pitch:           0.3,
		Yaw:             0.0,
		FovY:            gomath.Pi / 4,
		NearPlane:       0.1,
		FarPlane:        1000.0,
		MinDistance:     0.5,
		MaxDistance:     500.0,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cp := gomath.Cos(float64(c.Pitch))
	offset := math.Vec3{
		X: c.Distance * float32(cp*gomath.Cos(float64(c.Yaw))),
		Y: c.Distance * float32(cp*gomath.Sin(float64(c.Yaw))),
		Z: c.Distance * float32(gomath.Sin(float64(c.Pitch))),
	}
	return c.Center.Add(offset)
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, worldUp)
}

// ProjectionMatrix returns the perspective projection for a viewport aspect.
func (c *OrbitCamera) ProjectionMatrix(aspect float32) math.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return math.Perspective(c.FovY, aspect, c.NearPlane, c.FarPlane)
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch += deltaY * c.DragSensitivity
	c.Pitch = clamp(c.Pitch, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// HandleMovement pans the camera center point in the camera's ground frame.
func (c *OrbitCamera) HandleMovement(forward, right, up float32) {
	// Speed scales with distance for consistent feel
	speed := c.Distance * 0.01

	sin, cos := gomath.Sincos(float64(c.Yaw))
	// Forward points from the camera towards the center.
	dir := math.Vec3{X: -float32(cos), Y: -float32(sin)}
	side := dir.Cross(worldUp)

	c.Center = c.Center.
		Add(dir.Scale(forward * speed)).
		Add(side.Scale(right * speed)).
		Add(worldUp.Scale(up * speed))
}

// FitToSphere centers the camera on a bounding sphere and backs off far
// enough to see all of it.
func (c *OrbitCamera) FitToSphere(center math.Vec3, radius float32) {
	c.Center = center
	if radius <= 0 {
		radius = 1
	}
	half := float64(c.FovY) / 2
	c.Distance = radius / float32(gomath.Sin(half)) * 1.1
	c.Distance = clamp(c.Distance, c.MinDistance, c.MaxDistance)
	c.FarPlane = max(c.FarPlane, c.Distance+radius*4)
	c.Pitch = 0.3
	c.Yaw = 0
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
