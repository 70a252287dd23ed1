// Package evaluation runs the pose error metrics over many estimates and
// summarizes them into recall scores.
package evaluation

import (
	"fmt"

	"go.viam.com/bopeval/config"
	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/rimage/transform"
	"go.viam.com/bopeval/spatialmath"
)

// Unit is one comparison: an estimator's pose for one ground truth instance
// of an object in one image.
type Unit struct {
	Estimator string
	SceneID   int
	ImageID   int
	ObjectID  int
	GTIndex   int

	Estimate    spatialmath.Pose
	GroundTruth spatialmath.Pose

	// Measurement is the sensor's distance image, see
	// transform.PinholeCameraIntrinsics.DepthToDistance. Measurement and
	// Camera are only needed for VSD.
	Measurement *rimage.DepthMap
	Camera      *transform.PinholeCameraIntrinsics
}

func (u Unit) String() string {
	return fmt.Sprintf("%s scene %d image %d object %d gt %d", u.Estimator, u.SceneID, u.ImageID, u.ObjectID, u.GTIndex)
}

// UnitResult holds the errors computed for a Unit. Point metrics have one
// error; VSD has one per misalignment tolerance.
type UnitResult struct {
	Estimator string
	SceneID   int
	ImageID   int
	ObjectID  int
	GTIndex   int
	Diameter  float64
	Errors    map[config.Metric][]float64
}
