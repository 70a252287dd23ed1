package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree is a nearest neighbor index over a PointSet.
type KDTree struct {
	tree *kdtree.Tree
	size int
}

// ToKDTree builds a KDTree over the points of ps. The tree is built with a
// deterministic median-of-medians pivot, so equal inputs give equal trees and
// ties between equidistant neighbors resolve the same way every time.
func ToKDTree(ps *PointSet) *KDTree {
	nodes := make(kdPoints, ps.Len())
	for i, p := range ps.points {
		nodes[i] = kdPoint{Vector: p, index: i}
	}
	return &KDTree{tree: kdtree.New(nodes, false), size: len(nodes)}
}

// Size returns the number of indexed points.
func (kd *KDTree) Size() int {
	return kd.size
}

// NearestNeighbor returns the indexed point closest to q, its index in the
// source PointSet and the Euclidean distance to it. The first nearest point
// found wins ties. ok is false only for an empty tree.
func (kd *KDTree) NearestNeighbor(q r3.Vector) (r3.Vector, int, float64, bool) {
	c, dist2 := kd.tree.Nearest(kdPoint{Vector: q, index: -1})
	if c == nil {
		return r3.Vector{}, -1, math.Inf(1), false
	}
	p := c.(kdPoint)
	return p.Vector, p.index, math.Sqrt(dist2), true
}

// kdPoint is a point that remembers where it came from.
type kdPoint struct {
	r3.Vector
	index int
}

func (p kdPoint) coord(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// Compare returns the signed distance of p from the plane through c
// perpendicular to dimension d.
func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(kdPoint).coord(d)
}

// Dims returns the number of dimensions.
func (p kdPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance, as kdtree expects.
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	return p.Vector.Sub(c.(kdPoint).Vector).Norm2()
}

type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p kdPoints) Len() int                       { return len(p) }
func (p kdPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// Pivot partitions the list based on the dimension specified.
func (p kdPoints) Pivot(d kdtree.Dim) int {
	plane := kdPlane{dim: d, points: p}
	return kdtree.Partition(plane, kdtree.MedianOfMedians(plane))
}

type kdPlane struct {
	dim    kdtree.Dim
	points kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return p.points[i].coord(p.dim) < p.points[j].coord(p.dim)
}

func (p kdPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

func (p kdPlane) Len() int {
	return len(p.points)
}

func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
