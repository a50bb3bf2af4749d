package sunsky

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// sphToDir converts spherical angles (theta from zenith, phi from north
// toward east) into a unit direction in the emitter's Z-up local frame.
func sphToDir(theta, phi float64) r3.Vec {
	sinTheta, cosTheta := math.Sincos(theta)
	sinPhi, cosPhi := math.Sincos(phi)
	return r3.Vec{X: sinTheta * cosPhi, Y: sinTheta * sinPhi, Z: cosTheta}
}

// dirToSph is the inverse of sphToDir; phi is wrapped into [0, 2pi).
func dirToSph(d r3.Vec) (theta, phi float64) {
	theta = math.Acos(clamp(d.Z, -1, 1))
	phi = math.Atan2(d.Y, d.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return theta, phi
}

// wrapTwoPi folds an angle that is at most one period out of range back
// into [0, 2pi].
func wrapTwoPi(x float64) float64 {
	if x < 0 {
		return x + 2*math.Pi
	}
	if x > 2*math.Pi {
		return x - 2*math.Pi
	}
	return x
}

// unitAngle returns the angle between two unit vectors.
func unitAngle(a, b r3.Vec) float64 {
	return math.Acos(clamp(r3.Dot(a, b), -1, 1))
}

// orthonormalBasis completes a unit normal into a right-handed frame.
func orthonormalBasis(n r3.Vec) (s, t r3.Vec) {
	sign := math.Copysign(1, n.Z)
	a := -1 / (sign + n.Z)
	b := n.X * n.Y * a
	s = r3.Vec{X: 1 + sign*n.X*n.X*a, Y: sign * b, Z: -sign * n.X}
	t = r3.Vec{X: b, Y: sign + n.Y*n.Y*a, Z: -n.Y}
	return s, t
}

// frameToWorld expresses a vector given in the frame around n in the
// enclosing coordinates.
func frameToWorld(n, v r3.Vec) r3.Vec {
	s, t := orthonormalBasis(n)
	return r3.Add(r3.Add(r3.Scale(v.X, s), r3.Scale(v.Y, t)), r3.Scale(v.Z, n))
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
