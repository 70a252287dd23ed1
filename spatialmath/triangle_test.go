package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestTriangleNormal(t *testing.T) {
	tri := NewTriangle(r3.Vector{}, r3.Vector{X: 2}, r3.Vector{Y: 3})
	test.That(t, tri.Normal(), test.ShouldResemble, r3.Vector{Z: 1})
	test.That(t, tri.Points(), test.ShouldResemble, []r3.Vector{{}, {X: 2}, {Y: 3}})

	// collinear points have no normal
	flat := NewTriangle(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{X: 2})
	test.That(t, flat.Normal(), test.ShouldResemble, r3.Vector{})
}

func TestTriangleTransform(t *testing.T) {
	o, err := NewAxisAngle(r3.Vector{X: 1}, math.Pi/2)
	test.That(t, err, test.ShouldBeNil)
	pose := NewPose(r3.Vector{Z: 1}, o)

	tri := NewTriangle(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1}).Transform(pose)
	pts := tri.Points()
	test.That(t, pts[0].Sub(r3.Vector{Z: 1}).Norm(), test.ShouldAlmostEqual, 0)
	test.That(t, pts[1].Sub(r3.Vector{X: 1, Z: 1}).Norm(), test.ShouldAlmostEqual, 0)
	test.That(t, pts[2].Sub(r3.Vector{Z: 2}).Norm(), test.ShouldAlmostEqual, 0)
	// +z rotated a quarter turn about x points along -y
	test.That(t, tri.Normal().Sub(r3.Vector{Y: -1}).Norm(), test.ShouldAlmostEqual, 0)
}
