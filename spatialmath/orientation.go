// Package spatialmath defines rigid poses, orientations and meshes in 3D.
//
// Lengths are in meters. An orientation is always a proper rotation: a unit
// quaternion or an orthonormal 3x3 matrix with determinant +1.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Orientation is an interface used to express the different parameterizations of the orientation
// of a rigid object or a frame of reference in 3D Euclidean space.
type Orientation interface {
	Quaternion() quat.Number
	RotationMatrix() *RotationMatrix
}

// NewZeroOrientation returns an orientatation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{Real: 1}
}

// RotationAngle returns the angle of o in radians, in [0, pi].
func RotationAngle(o Orientation) float64 {
	q := o.Quaternion()
	v := math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	return 2 * math.Atan2(v, math.Abs(q.Real))
}

// unitTolerance bounds how far a quaternion norm may stray from one.
const unitTolerance = 1e-6

type quaternion quat.Number

// NewQuaternion returns the orientation described by the unit quaternion w + xi + yj + zk.
// A quaternion that is not unit length, or has non-finite components, is rejected
// with ErrDimensionMismatch.
func NewQuaternion(w, x, y, z float64) (Orientation, error) {
	q := quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
	if quat.IsNaN(q) || quat.IsInf(q) {
		return nil, newInvalidRotationError("quaternion has non-finite components")
	}
	if norm := quat.Abs(q); math.Abs(norm-1) > unitTolerance {
		return nil, newInvalidRotationError("quaternion norm %f is not 1", norm)
	}
	o := quaternion(q)
	return &o, nil
}

// NewAxisAngle returns the rotation of theta radians about axis.
func NewAxisAngle(axis r3.Vector, theta float64) (Orientation, error) {
	n := axis.Norm()
	if n == 0 || !isFiniteVector(axis) {
		return nil, newInvalidRotationError("axis %v cannot define a rotation", axis)
	}
	axis = axis.Mul(1 / n)
	s := math.Sin(theta / 2)
	return &quaternion{Real: math.Cos(theta / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}, nil
}

func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// RotationMatrix returns the orthonormal matrix of the rotation described by q.
func (q *quaternion) RotationMatrix() *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return &RotationMatrix{[9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}}
}
