package pointcloud

import (
	"context"
)

// Diameter returns the largest Euclidean distance between any two points of ps.
// A single point, or a set of identical points, has diameter 0.
func Diameter(ps *PointSet) float64 {
	// the background context is never canceled
	d, _ := DiameterContext(context.Background(), ps)
	return d
}

// DiameterContext is Diameter with cooperative cancellation, checked once per
// point of the outer loop. Every unordered pair is visited exactly once; there
// is no spatial pruning, so the cost is quadratic in the number of points.
func DiameterContext(ctx context.Context, ps *PointSet) (float64, error) {
	if ps.Len() == 0 {
		return 0, ErrEmptyPointSet
	}
	pts := ps.points
	// seeded with a real self-distance rather than a sentinel
	best := pts[0].Distance(pts[0])
	for i := 0; i < len(pts); i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for j := i + 1; j < len(pts); j++ {
			if d := pts[i].Distance(pts[j]); d > best {
				best = d
			}
		}
	}
	return best, nil
}
