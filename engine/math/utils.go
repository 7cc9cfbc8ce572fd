package math

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

/** @brief Smallest difference considered significant when comparing scene coordinates. */
const Epsilon float64 = 1e-9

// Up is the vertical axis of the scene.
var Up = Vec3{0, 0, 1}

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// NearlyEqual reports whether a and b differ by at most tolerance.
func NearlyEqual[T constraints.Float](a, b, tolerance T) bool {
	return T(m.Abs(float64(a-b))) <= tolerance
}

func NewVec3(x, y, z float64) Vec3 {
	return Vec3{x, y, z}
}

func DegToRad(degrees float64) float64 {
	return mgl64.DegToRad(degrees)
}

func RadToDeg(radians float64) float64 {
	return mgl64.RadToDeg(radians)
}

// NewQuatAboutVertical returns a rotation of degrees around the Z axis.
// Positive angles turn counter-clockwise when looking down on the scene.
func NewQuatAboutVertical(degrees float64) Quat {
	return mgl64.QuatRotate(DegToRad(degrees), Up)
}

// ScaleAbout scales every point uniformly by factor around pivot, in place.
func ScaleAbout(points []Vec3, factor float64, pivot Vec3) {
	for i, p := range points {
		points[i] = pivot.Add(p.Sub(pivot).Mul(factor))
	}
}

// RotateAboutVertical rotates every point around the vertical line through
// pivot, in place. Elevations are left untouched.
func RotateAboutVertical(points []Vec3, degrees float64, pivot Vec3) {
	rad := DegToRad(degrees)
	sin, cos := m.Sin(rad), m.Cos(rad)
	for i, p := range points {
		dx, dy := p.X()-pivot.X(), p.Y()-pivot.Y()
		points[i] = Vec3{
			pivot.X() + dx*cos - dy*sin,
			pivot.Y() + dx*sin + dy*cos,
			p.Z(),
		}
	}
}

// ExtentsOf returns the bounding box of points. It returns the zero box
// for an empty slice.
func ExtentsOf(points []Vec3) Extents3D {
	if len(points) == 0 {
		return Extents3D{}
	}
	ext := Extents3D{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		for k := 0; k < 3; k++ {
			ext.Min[k] = m.Min(ext.Min[k], p[k])
			ext.Max[k] = m.Max(ext.Max[k], p[k])
		}
	}
	return ext
}
