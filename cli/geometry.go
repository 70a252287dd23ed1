package cli

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/bopeval/evaluation"
	"go.viam.com/bopeval/poseerror"
	"go.viam.com/bopeval/spatialmath"
)

func loadModel(c *cli.Context) (*evaluation.Model, error) {
	mesh, err := spatialmath.NewMeshFromPLYFile(c.Path(modelFlagPath))
	if err != nil {
		return nil, err
	}
	scale := c.Float64(modelFlagScale)
	if !(scale > 0) {
		return nil, errors.Errorf("--%s must be positive, got %v", modelFlagScale, scale)
	}
	return evaluation.NewModelContext(c.Context, 0, nil, mesh.Scale(scale))
}

func poseFromFlags(c *cli.Context, rotationFlag, translationFlag string) (spatialmath.Pose, error) {
	pose, err := spatialmath.NewPoseFromRT(c.Float64Slice(rotationFlag), c.Float64Slice(translationFlag))
	if err != nil {
		return nil, errors.Wrapf(err, "--%s/--%s", rotationFlag, translationFlag)
	}
	return pose, nil
}

func posePairFromFlags(c *cli.Context) (spatialmath.Pose, spatialmath.Pose, error) {
	estimate, err := poseFromFlags(c, poseFlagEstimateRotation, poseFlagEstimateTranslation)
	if err != nil {
		return nil, nil, err
	}
	groundTruth, err := poseFromFlags(c, poseFlagGroundTruthRotation, poseFlagGroundTruthTranslation)
	if err != nil {
		return nil, nil, err
	}
	return estimate, groundTruth, nil
}

// DiameterAction prints the diameter of a model in meters.
func DiameterAction(c *cli.Context) error {
	model, err := loadModel(c)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d points, diameter %.6f m\n", model.Points().Len(), model.Diameter())
	return nil
}

// PointErrorsAction prints the point distance errors of an estimated pose,
// absolute and as a fraction of the model diameter, and how far the estimate
// is from the ground truth in translation and rotation.
func PointErrorsAction(c *cli.Context) error {
	model, err := loadModel(c)
	if err != nil {
		return err
	}
	estimate, groundTruth, err := posePairFromFlags(c)
	if err != nil {
		return err
	}

	add, err := poseerror.ADDError(model.Points(), estimate, groundTruth)
	if err != nil {
		return err
	}
	adds, err := poseerror.ADDSError(model.Points(), estimate, groundTruth)
	if err != nil {
		return err
	}
	mdds, err := poseerror.MDDSError(model.Points(), estimate, groundTruth)
	if err != nil {
		return err
	}
	loggerFrom(c).Debugw("computed point errors", "points", model.Points().Len(), "diameter", model.Diameter())

	for _, row := range []struct {
		name string
		err  float64
	}{
		{"ADD", add},
		{"ADD-S", adds},
		{"MDD-S", mdds},
	} {
		fmt.Fprintf(c.App.Writer, "%-6s %.6f m (%.4f of diameter)\n", row.name, row.err, row.err/model.Diameter())
	}
	translation, angle := spatialmath.PoseDelta(groundTruth, estimate)
	fmt.Fprintf(c.App.Writer, "translation error %.6f m, rotation error %.4f deg\n", translation, angle*180/math.Pi)
	return nil
}
