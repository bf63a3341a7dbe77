package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Attitude validation constants.
const (
	// AttitudeNormTolerance is the largest |‖q‖ − 1| accepted before an
	// attitude is rejected instead of renormalised.
	AttitudeNormTolerance = 1e-3
	// IdentityTolerance bounds the residual of a self-transform.
	IdentityTolerance = 1e-6
)

// Identity is the zero-rotation attitude.
var Identity = quat.Number{Real: 1}

// NormalizeAttitude returns q scaled to unit norm. Quaternions that are
// zero, non-finite, or further than AttitudeNormTolerance from unit norm
// are rejected with a *GeometryError.
func NormalizeAttitude(q quat.Number) (quat.Number, error) {
	if quat.IsNaN(q) || quat.IsInf(q) {
		return quat.Number{}, &GeometryError{Op: "normalize attitude", Reason: "non-finite quaternion"}
	}
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{}, &GeometryError{Op: "normalize attitude", Reason: "zero quaternion"}
	}
	if math.Abs(n-1) > AttitudeNormTolerance {
		return quat.Number{}, &GeometryError{
			Op:     "normalize attitude",
			Reason: fmt.Sprintf("quaternion norm %.6f is not unit", n),
		}
	}
	return quat.Scale(1/n, q), nil
}

// FromYaw builds a pure-yaw attitude (rotation about +Z).
func FromYaw(yaw float64) quat.Number {
	s, c := math.Sincos(yaw / 2)
	return quat.Number{Real: c, Kmag: s}
}

// FromEuler builds an attitude from intrinsic Z-Y-X (yaw, pitch, roll)
// angles in radians.
func FromEuler(roll, pitch, yaw float64) quat.Number {
	sr, cr := math.Sincos(roll / 2)
	sp, cp := math.Sincos(pitch / 2)
	sy, cy := math.Sincos(yaw / 2)
	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// Yaw extracts the Z-Y-X yaw angle of q in radians, in (−π, π].
func Yaw(q quat.Number) float64 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
}

// rotateInverse applies Rᵗ of the unit attitude q to v.
func rotateInverse(q quat.Number, v r3.Vec) r3.Vec {
	return r3.Rotation(quat.Conj(q)).Rotate(v)
}

// Rotate applies the rotation of the unit attitude q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	return r3.Rotation(q).Rotate(v)
}

// WXYZ returns q as a [w, x, y, z] array.
func WXYZ(q quat.Number) [4]float64 {
	return [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
}

// FromWXYZ builds a quaternion from a [w, x, y, z] array.
func FromWXYZ(a [4]float64) quat.Number {
	return quat.Number{Real: a[0], Imag: a[1], Jmag: a[2], Kmag: a[3]}
}
