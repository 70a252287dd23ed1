package poseerror

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/bopeval/pointcloud"
	"go.viam.com/bopeval/spatialmath"
	"go.viam.com/bopeval/utils"
)

// parallelQueryThreshold is the point count above which nearest neighbor
// queries are spread over utils.ParallelFactor goroutines.
const parallelQueryThreshold = 4096

// TransformPoints maps points through pose, rotation first and then translation.
func TransformPoints(points *pointcloud.PointSet, pose spatialmath.Pose) (*pointcloud.PointSet, error) {
	if points.Len() == 0 {
		return nil, ErrEmptyPointSet
	}
	if err := spatialmath.ValidatePose(pose); err != nil {
		return nil, err
	}
	return points.Transform(pose), nil
}

func transformBoth(points *pointcloud.PointSet, estimate, groundTruth spatialmath.Pose) (*pointcloud.PointSet, *pointcloud.PointSet, error) {
	if points.Len() == 0 {
		return nil, nil, errors.Wrap(ErrEmptyPointSet, "model points")
	}
	if err := spatialmath.ValidatePose(estimate); err != nil {
		return nil, nil, errors.Wrap(err, "estimate pose")
	}
	if err := spatialmath.ValidatePose(groundTruth); err != nil {
		return nil, nil, errors.Wrap(err, "ground truth pose")
	}
	return points.Transform(estimate), points.Transform(groundTruth), nil
}

// ModelPointDistances returns, for every model point, the distance between its
// estimate-posed and ground-truth-posed positions.
func ModelPointDistances(points *pointcloud.PointSet, estimate, groundTruth spatialmath.Pose) ([]float64, error) {
	est, gt, err := transformBoth(points, estimate, groundTruth)
	if err != nil {
		return nil, err
	}
	return pairedDistances(est, gt), nil
}

// ModelPointDistancesPaired is ModelPointDistances for two point sets that
// correspond index by index, such as a model and its decimated copy.
func ModelPointDistancesPaired(
	estimatePoints, groundTruthPoints *pointcloud.PointSet,
	estimate, groundTruth spatialmath.Pose,
) ([]float64, error) {
	if estimatePoints.Len() == 0 || groundTruthPoints.Len() == 0 {
		return nil, errors.Wrap(ErrEmptyPointSet, "model points")
	}
	if estimatePoints.Len() != groundTruthPoints.Len() {
		return nil, newDimensionMismatchError("estimate has %d points but ground truth has %d",
			estimatePoints.Len(), groundTruthPoints.Len())
	}
	est, err := TransformPoints(estimatePoints, estimate)
	if err != nil {
		return nil, errors.Wrap(err, "estimate pose")
	}
	gt, err := TransformPoints(groundTruthPoints, groundTruth)
	if err != nil {
		return nil, errors.Wrap(err, "ground truth pose")
	}
	return pairedDistances(est, gt), nil
}

func pairedDistances(a, b *pointcloud.PointSet) []float64 {
	out := make([]float64, a.Len())
	a.Iterate(func(i int, p r3.Vector) bool {
		out[i] = p.Distance(b.At(i))
		return true
	})
	return out
}

// ADDError is the mean of ModelPointDistances, the error for objects without
// symmetries.
func ADDError(points *pointcloud.PointSet, estimate, groundTruth spatialmath.Pose) (float64, error) {
	dists, err := ModelPointDistances(points, estimate, groundTruth)
	if err != nil {
		return 0, err
	}
	return reduce(stats.Mean, dists)
}

// NearestNeighborDistances returns, for every ground-truth-posed model point,
// the distance to the closest estimate-posed model point.
func NearestNeighborDistances(points *pointcloud.PointSet, estimate, groundTruth spatialmath.Pose) ([]float64, error) {
	return NearestNeighborDistancesContext(context.Background(), points, estimate, groundTruth)
}

// NearestNeighborDistancesContext is NearestNeighborDistances with cancellation.
// Large point sets are queried in parallel; the result does not depend on it.
func NearestNeighborDistancesContext(
	ctx context.Context,
	points *pointcloud.PointSet,
	estimate, groundTruth spatialmath.Pose,
) ([]float64, error) {
	est, gt, err := transformBoth(points, estimate, groundTruth)
	if err != nil {
		return nil, err
	}
	index := pointcloud.ToKDTree(est)
	out := make([]float64, gt.Len())
	query := func(i int) {
		_, _, d, _ := index.NearestNeighbor(gt.At(i))
		out[i] = d
	}

	if gt.Len() < parallelQueryThreshold {
		for i := 0; i < gt.Len(); i++ {
			query(i)
		}
		return out, ctx.Err()
	}
	if err := utils.GroupWorkParallel(ctx, gt.Len(), func(groupNum, groupSize, from, to int) utils.MemberWorkFunc {
		return func(memberNum, workNum int) {
			query(workNum)
		}
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// ADDSError is the mean of NearestNeighborDistances, the error for objects
// with symmetries.
func ADDSError(points *pointcloud.PointSet, estimate, groundTruth spatialmath.Pose) (float64, error) {
	dists, err := NearestNeighborDistances(points, estimate, groundTruth)
	if err != nil {
		return 0, err
	}
	return reduce(stats.Mean, dists)
}

// MDDSError is the maximum of NearestNeighborDistances. It reacts to the worst
// surface deviation rather than the average one.
func MDDSError(points *pointcloud.PointSet, estimate, groundTruth spatialmath.Pose) (float64, error) {
	dists, err := NearestNeighborDistances(points, estimate, groundTruth)
	if err != nil {
		return 0, err
	}
	return reduce(stats.Max, dists)
}

func reduce(fn func(stats.Float64Data) (float64, error), values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyPointSet
	}
	v, err := fn(values)
	if err != nil {
		return 0, errors.Wrap(ErrEmptyPointSet, err.Error())
	}
	return v, nil
}
