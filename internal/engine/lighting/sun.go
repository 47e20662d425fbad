// Package lighting provides lighting utilities for 3D rendering.
package lighting

import (
	gomath "math"

	"github.com/Faultbox/m2view/pkg/math"
)

// SunDirection converts azimuth/elevation angles in degrees to a light
// direction. Azimuth is rotation around Z from +X, elevation is the angle
// above the XY plane. The result points towards the sun.
func SunDirection(azimuth, elevation float32) math.Vec3 {
	az := float64(azimuth) * gomath.Pi / 180.0
	el := float64(elevation) * gomath.Pi / 180.0

	return math.Vec3{
		X: float32(gomath.Cos(el) * gomath.Cos(az)),
		Y: float32(gomath.Cos(el) * gomath.Sin(az)),
		Z: float32(gomath.Sin(el)),
	}
}
