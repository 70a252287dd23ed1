package cli

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/bopeval/poseerror"
	"go.viam.com/bopeval/render"
	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/rimage/transform"
)

// VSDAction prints the VSD error of an estimated pose at every tolerance.
func VSDAction(c *cli.Context) error {
	logger := loggerFrom(c)
	model, err := loadModel(c)
	if err != nil {
		return err
	}
	estimate, groundTruth, err := posePairFromFlags(c)
	if err != nil {
		return err
	}
	camera, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(c.Path(imageFlagCamera))
	if err != nil {
		return err
	}
	depth, err := rimage.ParseDepthMap(c.Path(imageFlagDepth), c.Float64(imageFlagDepthScale))
	if err != nil {
		return err
	}
	measurement, err := camera.DepthToDistance(depth)
	if err != nil {
		return err
	}

	taus := poseerror.Thresholds(c.Float64Slice(vsdFlagTau))
	if len(taus) == 0 {
		taus = poseerror.BOP19Thresholds.Scaled(model.Diameter())
	}
	scene := render.Scene{Mesh: model.Mesh(), Intrinsics: camera}
	errs, err := poseerror.VSDErrors(c.Context, render.NewRasterizer(logger), estimate, groundTruth,
		measurement, scene, c.Float64(vsdFlagDelta), taus)
	if err != nil {
		return err
	}
	for i, tau := range taus {
		fmt.Fprintf(c.App.Writer, "tau %.4f m: %.4f\n", tau, errs[i])
	}
	return nil
}

// RenderAction writes the distance image of a model at a pose as a 16-bit PNG,
// or its z-depth image with --z-depth.
func RenderAction(c *cli.Context) (err error) {
	logger := loggerFrom(c)
	model, err := loadModel(c)
	if err != nil {
		return err
	}
	pose, err := poseFromFlags(c, poseFlagRotation, poseFlagTranslation)
	if err != nil {
		return err
	}
	camera, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(c.Path(imageFlagCamera))
	if err != nil {
		return err
	}
	dist, err := render.NewRasterizer(logger).Render(c.Context, render.Scene{Mesh: model.Mesh(), Intrinsics: camera}, pose)
	if err != nil {
		return err
	}
	if c.Bool(imageFlagZDepth) {
		if dist, err = camera.DistanceToDepth(dist); err != nil {
			return err
		}
	}
	origin := pose.Point()
	u, v := camera.PointToPixel(origin.X, origin.Y, origin.Z)
	logger.Debugw("object origin projection", "x", u, "y", v)

	out := c.Path(imageFlagOutput)
	//nolint:gosec
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "creating %q", out)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := rimage.WriteDepthMap(f, dist, c.Float64(imageFlagDepthScale)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %dx%d image with %d object pixels to %s\n", dist.Width(), dist.Height(), dist.ValidCount(), out)
	if u >= 0 && v >= 0 && int(u) < camera.Width && int(v) < camera.Height {
		fmt.Fprintf(c.App.Writer, "object origin at pixel (%.0f, %.0f)\n", u, v)
	}
	return nil
}
