package poseerror

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/bopeval/render"
	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/spatialmath"
	"go.viam.com/bopeval/testutils/inject"
)

func depthRows(t *testing.T, rows ...[]float64) *rimage.DepthMap {
	t.Helper()
	dm, err := rimage.NewDepthMapFromRows(rows)
	test.That(t, err, test.ShouldBeNil)
	return dm
}

// flatRenderer draws a 2x2 image filled with the pose's z translation.
func flatRenderer(calls *int) *inject.Renderer {
	return &inject.Renderer{
		RenderFunc: func(ctx context.Context, scene render.Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
			*calls++
			dm := rimage.NewEmptyDepthMap(2, 2)
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					dm.Set(x, y, pose.Point().Z)
				}
			}
			return dm, nil
		},
	}
}

func TestSurfaceDiscrepancy(t *testing.T) {
	img := depthRows(t, []float64{1, 0}, []float64{0.5, 2})
	d, err := SurfaceDiscrepancy(img, img.Clone(), 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 0)

	d, err = SurfaceDiscrepancy(depthRows(t, []float64{1, 0}), depthRows(t, []float64{0, 1}), 10)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 1)

	d, err = SurfaceDiscrepancy(rimage.NewEmptyDepthMap(3, 3), rimage.NewEmptyDepthMap(3, 3), 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 1)

	d, err = SurfaceDiscrepancy(
		depthRows(t, []float64{1.0, 0.0}, []float64{0.0, 1.0}),
		depthRows(t, []float64{1.05, 0.0}, []float64{0.0, 0.0}),
		0.1,
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 0.5)

	d, err = SurfaceDiscrepancy(depthRows(t, []float64{1.0, 1.0}), depthRows(t, []float64{1.5, 1.01}), 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 0.5)

	_, err = SurfaceDiscrepancy(rimage.NewEmptyDepthMap(2, 2), rimage.NewEmptyDepthMap(2, 3), 0.1)
	test.That(t, err, test.ShouldWrap, ErrDimensionMismatch)
}

func TestPixelVisible(t *testing.T) {
	for _, tc := range []struct {
		rendered, measured, want float64
	}{
		{1.0, 0, 1.0},
		{1.0, -1, 1.0},
		{1.0, 1.0, 1.0},
		{1.01, 1.0, 1.01},
		{1.1, 1.0, 0},
		{0.5, 1.0, 0.5},
		{0, 1.0, 0},
	} {
		test.That(t, PixelVisible(tc.rendered, tc.measured, DefaultDelta), test.ShouldEqual, tc.want)
	}
}

func TestDrawDistance(t *testing.T) {
	estimate := spatialmath.NewPoseFromPoint(r3.Vector{Z: 1})
	groundTruth := spatialmath.NewPoseFromPoint(r3.Vector{Z: 2})

	calls := 0
	est, gt, err := DrawDistance(context.Background(), flatRenderer(&calls), estimate, groundTruth, render.Scene{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calls, test.ShouldEqual, 2)
	test.That(t, est.GetDepth(0, 0), test.ShouldEqual, 1)
	test.That(t, gt.GetDepth(1, 1), test.ShouldEqual, 2)

	pairCalls := 0
	dual := &inject.DualRenderer{
		Renderer: *flatRenderer(&calls),
		RenderPairFunc: func(ctx context.Context, scene render.Scene, a, b spatialmath.Pose) (*rimage.DepthMap, *rimage.DepthMap, error) {
			pairCalls++
			return rimage.NewEmptyDepthMap(2, 2), rimage.NewEmptyDepthMap(2, 2), nil
		},
	}
	calls = 0
	_, _, err = DrawDistance(context.Background(), dual, estimate, groundTruth, render.Scene{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pairCalls, test.ShouldEqual, 1)
	test.That(t, calls, test.ShouldEqual, 0)

	_, _, err = DrawDistance(context.Background(), flatRenderer(&calls), nil, groundTruth, render.Scene{})
	test.That(t, err, test.ShouldWrap, ErrDimensionMismatch)
	test.That(t, calls, test.ShouldEqual, 0)
}

func TestDrawDistanceRendererFailures(t *testing.T) {
	pose := spatialmath.NewZeroPose()
	boom := errors.New("out of video memory")
	failing := &inject.Renderer{
		RenderFunc: func(ctx context.Context, scene render.Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
			return nil, boom
		},
	}
	_, _, err := DrawDistance(context.Background(), failing, pose, pose, render.Scene{})
	test.That(t, err, test.ShouldWrap, ErrRendererFailure)
	test.That(t, err, test.ShouldWrap, boom)
	var rf *RendererFailureError
	test.That(t, errors.As(err, &rf), test.ShouldBeTrue)
	test.That(t, rf.Err, test.ShouldEqual, boom)

	shared := rimage.NewEmptyDepthMap(2, 2)
	aliasing := &inject.Renderer{
		RenderFunc: func(ctx context.Context, scene render.Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
			return shared, nil
		},
	}
	_, _, err = DrawDistance(context.Background(), aliasing, pose, pose, render.Scene{})
	test.That(t, err, test.ShouldWrap, ErrRendererFailure)

	_, _, err = DrawDistance(context.Background(), render.NewOwnedBuffer(aliasing), pose, pose, render.Scene{})
	test.That(t, err, test.ShouldBeNil)

	mismatched := &inject.DualRenderer{
		RenderPairFunc: func(ctx context.Context, scene render.Scene, a, b spatialmath.Pose) (*rimage.DepthMap, *rimage.DepthMap, error) {
			return rimage.NewEmptyDepthMap(2, 2), rimage.NewEmptyDepthMap(3, 2), nil
		},
	}
	_, _, err = DrawDistance(context.Background(), mismatched, pose, pose, render.Scene{})
	test.That(t, err, test.ShouldWrap, ErrDimensionMismatch)
}

func TestVSDError(t *testing.T) {
	calls := 0
	renderer := flatRenderer(&calls)
	estimate := spatialmath.NewPoseFromPoint(r3.Vector{Z: 1.0})
	groundTruth := spatialmath.NewPoseFromPoint(r3.Vector{Z: 1.045})
	noReading := rimage.NewEmptyDepthMap(2, 2)

	e, err := VSDError(context.Background(), renderer, estimate, groundTruth, noReading, render.Scene{}, DefaultDelta, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e, test.ShouldEqual, 0)

	e, err = VSDError(context.Background(), renderer, estimate, groundTruth, noReading, render.Scene{}, DefaultDelta, 0.01)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e, test.ShouldEqual, 1)

	// an occluder in front of both surfaces hides everything
	occluded := depthRows(t, []float64{0.5, 0.5}, []float64{0.5, 0.5})
	e, err = VSDError(context.Background(), renderer, estimate, groundTruth, occluded, render.Scene{}, DefaultDelta, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e, test.ShouldEqual, 1)

	// the occluder hides only the ground truth surface in the top row
	partial := depthRows(t, []float64{1.0, 1.0}, []float64{0, 0})
	e, err = VSDError(context.Background(), renderer, estimate, groundTruth, partial, render.Scene{}, DefaultDelta, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e, test.ShouldEqual, 0.5)

	_, err = VSDError(context.Background(), renderer, estimate, groundTruth, rimage.NewEmptyDepthMap(3, 3), render.Scene{}, DefaultDelta, 0.1)
	test.That(t, err, test.ShouldWrap, ErrDimensionMismatch)
	_, err = VSDError(context.Background(), renderer, estimate, groundTruth, noReading, render.Scene{}, DefaultDelta, -1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestVSDErrorsBOP19(t *testing.T) {
	calls := 0
	errs, err := VSDErrorsBOP19(
		context.Background(),
		flatRenderer(&calls),
		spatialmath.NewPoseFromPoint(r3.Vector{Z: 1.0}),
		spatialmath.NewPoseFromPoint(r3.Vector{Z: 1.045}),
		rimage.NewEmptyDepthMap(2, 2),
		render.Scene{},
		0.2,
		DefaultDelta,
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calls, test.ShouldEqual, 2)
	test.That(t, errs, test.ShouldResemble, []float64{1, 1, 1, 1, 0, 0, 0, 0, 0, 0})

	_, err = VSDErrorsBOP19(context.Background(), flatRenderer(&calls), spatialmath.NewZeroPose(), spatialmath.NewZeroPose(),
		rimage.NewEmptyDepthMap(2, 2), render.Scene{}, 0, DefaultDelta)
	test.That(t, err, test.ShouldNotBeNil)
}
