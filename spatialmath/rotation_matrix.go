package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// rotationTolerance bounds the deviation from orthonormality and from a unit
// determinant accepted for a rotation matrix.
const rotationTolerance = 1e-6

// RotationMatrix is a 3x3 proper rotation stored in row-major order.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix builds a rotation from nine row-major values, the layout
// BOP uses for cam_R_m2c. The matrix must be orthonormal with determinant +1.
func NewRotationMatrix(data []float64) (*RotationMatrix, error) {
	if len(data) != 9 {
		return nil, newInvalidRotationError("rotation matrix needs 9 values, got %d", len(data))
	}
	rm := &RotationMatrix{}
	copy(rm.mat[:], data)
	if err := rm.checkProper(); err != nil {
		return nil, err
	}
	return rm, nil
}

func (rm *RotationMatrix) checkProper() error {
	for _, v := range rm.mat {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return newInvalidRotationError("rotation matrix has non-finite entries")
		}
	}
	m := mat.NewDense(3, 3, rm.mat[:])
	var prod mat.Dense
	prod.Mul(m.T(), m)
	if !mat.EqualApprox(&prod, eye3, rotationTolerance) {
		return newInvalidRotationError("rotation matrix is not orthonormal")
	}
	if det := mat.Det(m); math.Abs(det-1) > rotationTolerance {
		return newInvalidRotationError("rotation matrix determinant %f is not +1", det)
	}
	return nil
}

var eye3 = mat.NewDiagDense(3, []float64{1, 1, 1})

// Mul rotates v.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rm.mat[0]*v.X + rm.mat[1]*v.Y + rm.mat[2]*v.Z,
		Y: rm.mat[3]*v.X + rm.mat[4]*v.Y + rm.mat[5]*v.Z,
		Z: rm.mat[6]*v.X + rm.mat[7]*v.Y + rm.mat[8]*v.Z,
	}
}

// RotationMatrix returns the receiver so a RotationMatrix is itself an Orientation.
func (rm *RotationMatrix) RotationMatrix() *RotationMatrix {
	return rm
}

// Quaternion converts the matrix to a unit quaternion with a non-negative real part.
func (rm *RotationMatrix) Quaternion() quat.Number {
	m := rm.mat
	var q quat.Number
	switch tr := m[0] + m[4] + m[8]; {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{Real: s / 4, Imag: (m[7] - m[5]) / s, Jmag: (m[2] - m[6]) / s, Kmag: (m[3] - m[1]) / s}
	case m[0] > m[4] && m[0] > m[8]:
		s := math.Sqrt(1+m[0]-m[4]-m[8]) * 2
		q = quat.Number{Real: (m[7] - m[5]) / s, Imag: s / 4, Jmag: (m[1] + m[3]) / s, Kmag: (m[2] + m[6]) / s}
	case m[4] > m[8]:
		s := math.Sqrt(1+m[4]-m[0]-m[8]) * 2
		q = quat.Number{Real: (m[2] - m[6]) / s, Imag: (m[1] + m[3]) / s, Jmag: s / 4, Kmag: (m[5] + m[7]) / s}
	default:
		s := math.Sqrt(1+m[8]-m[0]-m[4]) * 2
		q = quat.Number{Real: (m[3] - m[1]) / s, Imag: (m[2] + m[6]) / s, Jmag: (m[5] + m[7]) / s, Kmag: s / 4}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return quat.Scale(1/quat.Abs(q), q)
}

// Transpose returns the inverse rotation.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	m := rm.mat
	return &RotationMatrix{[9]float64{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}}
}

// MulMatrix returns rm * other.
func (rm *RotationMatrix) MulMatrix(other *RotationMatrix) *RotationMatrix {
	out := &RotationMatrix{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += rm.mat[r*3+k] * other.mat[k*3+c]
			}
			out.mat[r*3+c] = sum
		}
	}
	return out
}
