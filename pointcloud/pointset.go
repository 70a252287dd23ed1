package pointcloud

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/bopeval/spatialmath"
	"go.viam.com/bopeval/utils"
)

// PointSet is an ordered, immutable, non-empty sequence of finite 3D points,
// typically the model points of one object. It is built once and shared
// read-only between evaluations.
type PointSet struct {
	points []r3.Vector
}

// Normalize canonicalizes any accepted point representation into a PointSet.
// Accepted inputs are:
//   - []r3.Vector or Vectors: one vector per point
//   - [][]float64: one 3-element row per point
//   - [][3]float64: one array per point
//   - mat.Matrix: a 3xN matrix with one point per column
//   - *spatialmath.Mesh: the mesh's vertex buffer
//   - *PointSet: returned unchanged
//
// Anything else, or a shape violation within an accepted type, fails with
// ErrInvalidGeometry.
func Normalize(input interface{}) (*PointSet, error) {
	switch in := input.(type) {
	case *PointSet:
		if in == nil {
			return nil, newInvalidGeometryError("point set is nil")
		}
		return in, nil
	case []r3.Vector:
		return NewPointSet(in)
	case Vectors:
		return NewPointSet(in)
	case [][]float64:
		return FromRows(in)
	case [][3]float64:
		return FromArrays(in)
	case *spatialmath.Mesh:
		return FromMesh(in)
	case mat.Matrix:
		return FromColumns(in)
	case nil:
		return nil, newInvalidGeometryError("no point input")
	default:
		return nil, newInvalidGeometryError("unsupported point input type %T", input)
	}
}

// NewPointSet copies points into a new PointSet.
func NewPointSet(points []r3.Vector) (*PointSet, error) {
	if len(points) == 0 {
		return nil, newInvalidGeometryError("point set is empty")
	}
	owned := make([]r3.Vector, len(points))
	for i, p := range points {
		if !utils.AllFinite(p.X, p.Y, p.Z) {
			return nil, newInvalidGeometryError("point %d is not finite: %v", i, p)
		}
		owned[i] = p
	}
	return &PointSet{points: owned}, nil
}

// FromRows builds a PointSet from a sequence of 3-vectors.
func FromRows(rows [][]float64) (*PointSet, error) {
	points := make([]r3.Vector, len(rows))
	for i, row := range rows {
		if len(row) != 3 {
			return nil, newInvalidGeometryError("row %d has %d coordinates, want 3", i, len(row))
		}
		points[i] = NewVector(row[0], row[1], row[2])
	}
	return NewPointSet(points)
}

// FromArrays builds a PointSet from fixed-size coordinate arrays.
func FromArrays(rows [][3]float64) (*PointSet, error) {
	points := make([]r3.Vector, len(rows))
	for i, row := range rows {
		points[i] = NewVector(row[0], row[1], row[2])
	}
	return NewPointSet(points)
}

// FromColumns builds a PointSet from a dense matrix holding one point per column.
func FromColumns(m mat.Matrix) (*PointSet, error) {
	if m == nil {
		return nil, newInvalidGeometryError("matrix is nil")
	}
	r, c := m.Dims()
	if r != 3 {
		return nil, newInvalidGeometryError("matrix has %d rows, want 3 (one point per column)", r)
	}
	points := make([]r3.Vector, c)
	for j := 0; j < c; j++ {
		points[j] = NewVector(m.At(0, j), m.At(1, j), m.At(2, j))
	}
	return NewPointSet(points)
}

// FromMesh builds a PointSet from a mesh's vertex buffer.
func FromMesh(m *spatialmath.Mesh) (*PointSet, error) {
	if m == nil {
		return nil, newInvalidGeometryError("mesh is nil")
	}
	return NewPointSet(m.Vertices())
}

// Len returns the number of points.
func (ps *PointSet) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.points)
}

// At returns the i-th point.
func (ps *PointSet) At(i int) r3.Vector {
	return ps.points[i]
}

// Points returns a copy of the points.
func (ps *PointSet) Points() []r3.Vector {
	out := make([]r3.Vector, len(ps.points))
	copy(out, ps.points)
	return out
}

// Iterate calls fn for each point in order until fn returns false.
func (ps *PointSet) Iterate(fn func(i int, p r3.Vector) bool) {
	for i, p := range ps.points {
		if !fn(i, p) {
			return
		}
	}
}

// Transform maps every point through pose, rotation first and then translation.
// The receiver is left untouched.
func (ps *PointSet) Transform(pose spatialmath.Pose) *PointSet {
	rm := pose.Orientation().RotationMatrix()
	t := pose.Point()
	out := make([]r3.Vector, len(ps.points))
	for i, p := range ps.points {
		out[i] = rm.Mul(p).Add(t)
	}
	return &PointSet{points: out}
}
