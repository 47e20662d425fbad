package math

// Vec4 is a 4-component vector (homogeneous points, RGBA colors).
type Vec4 [4]float32

// Lerp interpolates linearly from v toward other.
func (v Vec4) Lerp(other Vec4, t float32) Vec4 {
	return Vec4{
		v[0] + t*(other[0]-v[0]),
		v[1] + t*(other[1]-v[1]),
		v[2] + t*(other[2]-v[2]),
		v[3] + t*(other[3]-v[3]),
	}
}

// XYZ drops the w component.
func (v Vec4) XYZ() Vec3 {
	return Vec3{v[0], v[1], v[2]}
}

// Clamp01 returns a scalar clamped to [0,1].
func Clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Lerp interpolates linearly between two scalars.
func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}
