package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Pose represents a rigid transform: an orientation applied first, then a
// translation in meters.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type basicPose struct {
	point       r3.Vector
	orientation Orientation
}

// NewPose returns a pose translating by p after rotating by o. A nil orientation
// means no rotation.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		o = NewZeroOrientation()
	}
	return &basicPose{point: p, orientation: o}
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return NewPose(r3.Vector{}, NewZeroOrientation())
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(p r3.Vector) Pose {
	return NewPose(p, NewZeroOrientation())
}

// NewPoseFromRT builds a pose from a row-major 3x3 rotation and a 3-vector
// translation, the cam_R_m2c / cam_t_m2c layout of BOP ground truth.
func NewPoseFromRT(rotation, translation []float64) (Pose, error) {
	rm, err := NewRotationMatrix(rotation)
	if err != nil {
		return nil, err
	}
	if len(translation) != 3 {
		return nil, newDimensionMismatchError("translation needs 3 values, got %d", len(translation))
	}
	t := r3.Vector{X: translation[0], Y: translation[1], Z: translation[2]}
	if !isFiniteVector(t) {
		return nil, newDimensionMismatchError("translation %v is not finite", t)
	}
	return NewPose(t, rm), nil
}

func (p *basicPose) Point() r3.Vector {
	return p.point
}

func (p *basicPose) Orientation() Orientation {
	return p.orientation
}

// ValidatePose checks that p is a well-formed rigid transform: non-nil, a
// finite translation, and a proper rotation.
func ValidatePose(p Pose) error {
	if p == nil {
		return newDimensionMismatchError("pose is nil")
	}
	if !isFiniteVector(p.Point()) {
		return newDimensionMismatchError("translation %v is not finite", p.Point())
	}
	o := p.Orientation()
	if o == nil {
		return newDimensionMismatchError("orientation is nil")
	}
	rm := o.RotationMatrix()
	if rm == nil {
		return newDimensionMismatchError("orientation has no rotation matrix")
	}
	return rm.checkProper()
}

// TransformPoint applies p to v: rotation first, then translation.
func TransformPoint(p Pose, v r3.Vector) r3.Vector {
	return p.Orientation().RotationMatrix().Mul(v).Add(p.Point())
}

// Compose returns the pose equivalent to applying b and then a.
func Compose(a, b Pose) Pose {
	ra := a.Orientation().RotationMatrix()
	rb := b.Orientation().RotationMatrix()
	return NewPose(ra.Mul(b.Point()).Add(a.Point()), ra.MulMatrix(rb))
}

// PoseInverse returns the pose that undoes p.
func PoseInverse(p Pose) Pose {
	rt := p.Orientation().RotationMatrix().Transpose()
	return NewPose(rt.Mul(p.Point()).Mul(-1), rt)
}

// PoseBetween returns the pose that takes a to b, i.e. Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseDelta returns how far b is from a: the distance between the
// translations in meters and the angle of the relative rotation in radians.
func PoseDelta(a, b Pose) (float64, float64) {
	delta := PoseBetween(a, b)
	return delta.Point().Norm(), RotationAngle(delta.Orientation())
}

func isFiniteVector(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
