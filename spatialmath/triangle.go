package spatialmath

import (
	"github.com/golang/geo/r3"
)

// Triangle is three points and the normal of the plane through them.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle returns the triangle p0, p1, p2 with a counter-clockwise normal.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: PlaneNormal(p0, p1, p2),
	}
}

// Points returns the corners of the triangle.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit normal. Degenerate triangles have a zero normal.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Transform returns the triangle moved by pose.
func (t *Triangle) Transform(pose Pose) *Triangle {
	return NewTriangle(TransformPoint(pose, t.p0), TransformPoint(pose, t.p1), TransformPoint(pose, t.p2))
}

// PlaneNormal returns the unit normal of the plane through p0, p1, p2, or the
// zero vector if the points are collinear.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	if norm := n.Norm(); norm > 0 {
		return n.Mul(1 / norm)
	}
	return r3.Vector{}
}
