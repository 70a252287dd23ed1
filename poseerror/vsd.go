package poseerror

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/bopeval/render"
	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/spatialmath"
	"go.viam.com/bopeval/utils"
)

// DefaultDelta is the BOP19 visibility tolerance in meters.
const DefaultDelta = 0.015

// DrawDistance renders the scene's object at the estimate and ground truth
// poses. A renderer that implements render.DualRenderer is called once,
// any other renderer twice. Renderers must return owned buffers; getting the
// same buffer back for both poses is reported as a renderer failure.
func DrawDistance(
	ctx context.Context,
	renderer render.Renderer,
	estimate, groundTruth spatialmath.Pose,
	scene render.Scene,
) (*rimage.DepthMap, *rimage.DepthMap, error) {
	if err := spatialmath.ValidatePose(estimate); err != nil {
		return nil, nil, errors.Wrap(err, "estimate pose")
	}
	if err := spatialmath.ValidatePose(groundTruth); err != nil {
		return nil, nil, errors.Wrap(err, "ground truth pose")
	}
	est, gt, err := render.RenderPair(ctx, renderer, scene, estimate, groundTruth)
	if err != nil {
		return nil, nil, newRendererFailure(err)
	}
	if est == nil || gt == nil {
		return nil, nil, newRendererFailure(errors.New("renderer returned no image"))
	}
	if est == gt {
		return nil, nil, newRendererFailure(errors.New("renderer returned one buffer for both poses, wrap it with render.NewOwnedBuffer"))
	}
	if !est.SameSize(gt) {
		return nil, nil, newDimensionMismatchError("rendered images are %dx%d and %dx%d",
			est.Width(), est.Height(), gt.Width(), gt.Height())
	}
	return est, gt, nil
}

// PixelVisible masks one rendered distance against the measured one. The
// rendered surface is visible where the sensor has no reading or where it is
// no more than delta behind the measurement; elsewhere the result is 0.
func PixelVisible(rendered, measured, delta float64) float64 {
	if measured <= 0 || rendered <= measured+delta {
		return rendered
	}
	return 0
}

// VisibleSurface applies PixelVisible to every pixel of rendered.
func VisibleSurface(rendered, measured *rimage.DepthMap, delta float64) (*rimage.DepthMap, error) {
	if !rendered.SameSize(measured) {
		return nil, newDimensionMismatchError("rendered image is %dx%d but measurement is %dx%d",
			rendered.Width(), rendered.Height(), measured.Width(), measured.Height())
	}
	return rendered.Map(func(x, y int, v float64) float64 {
		return PixelVisible(v, measured.GetDepth(x, y), delta)
	}), nil
}

// SurfaceDiscrepancy is the fraction of the union of both supports where the
// surfaces disagree: pixels covered by only one image, and pixels covered by
// both whose distances differ by more than tau. An empty union scores 1.
func SurfaceDiscrepancy(estimate, groundTruth *rimage.DepthMap, tau float64) (float64, error) {
	if !estimate.SameSize(groundTruth) {
		return 0, newDimensionMismatchError("estimate image is %dx%d but ground truth is %dx%d",
			estimate.Width(), estimate.Height(), groundTruth.Width(), groundTruth.Height())
	}
	union, cost := 0, 0
	for y := 0; y < estimate.Height(); y++ {
		for x := 0; x < estimate.Width(); x++ {
			a, b := estimate.GetDepth(x, y), groundTruth.GetDepth(x, y)
			inA, inB := a > 0, b > 0
			switch {
			case !inA && !inB:
				continue
			case inA != inB:
				cost++
			case math.Abs(a-b) > tau:
				cost++
			}
			union++
		}
	}
	if union == 0 {
		return 1, nil
	}
	return float64(cost) / float64(union), nil
}

// VSDError is the visible surface discrepancy between the estimate and the
// ground truth pose, judged against the measured distance image.
func VSDError(
	ctx context.Context,
	renderer render.Renderer,
	estimate, groundTruth spatialmath.Pose,
	measurement *rimage.DepthMap,
	scene render.Scene,
	delta, tau float64,
) (float64, error) {
	errs, err := VSDErrors(ctx, renderer, estimate, groundTruth, measurement, scene, delta, []float64{tau})
	if err != nil {
		return 0, err
	}
	return errs[0], nil
}

// VSDErrors renders both poses once and returns one VSD error per tau.
func VSDErrors(
	ctx context.Context,
	renderer render.Renderer,
	estimate, groundTruth spatialmath.Pose,
	measurement *rimage.DepthMap,
	scene render.Scene,
	delta float64,
	taus []float64,
) ([]float64, error) {
	if measurement == nil {
		return nil, errors.New("measurement is nil")
	}
	if !utils.IsFinite(delta) || delta < 0 {
		return nil, errors.Errorf("visibility tolerance must be a non-negative number, got %v", delta)
	}
	for _, tau := range taus {
		if !utils.IsFinite(tau) || tau < 0 {
			return nil, errors.Errorf("misalignment tolerance must be a non-negative number, got %v", tau)
		}
	}
	estDist, gtDist, err := DrawDistance(ctx, renderer, estimate, groundTruth, scene)
	if err != nil {
		return nil, err
	}
	estVisible, err := VisibleSurface(estDist, measurement, delta)
	if err != nil {
		return nil, err
	}
	gtVisible, err := VisibleSurface(gtDist, measurement, delta)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(taus))
	for i, tau := range taus {
		if out[i], err = SurfaceDiscrepancy(estVisible, gtVisible, tau); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// VSDErrorsBOP19 returns the VSD error at tau = k * diameter for every k of
// BOP19Thresholds, rendering only once.
func VSDErrorsBOP19(
	ctx context.Context,
	renderer render.Renderer,
	estimate, groundTruth spatialmath.Pose,
	measurement *rimage.DepthMap,
	scene render.Scene,
	diameter, delta float64,
) ([]float64, error) {
	if !utils.IsFinite(diameter) || diameter <= 0 {
		return nil, errors.Errorf("object diameter must be positive, got %v", diameter)
	}
	return VSDErrors(ctx, renderer, estimate, groundTruth, measurement, scene, delta, BOP19Thresholds.Scaled(diameter))
}
