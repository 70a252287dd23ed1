package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/rimage/transform"
	"go.viam.com/bopeval/spatialmath"
)

// PoseJSON is a pose as BOP stores it: a row-major rotation matrix and a
// translation, here in meters.
type PoseJSON struct {
	R []float64 `json:"R"`
	T []float64 `json:"t"`
}

// Pose converts p to a spatialmath.Pose.
func (p PoseJSON) Pose() (spatialmath.Pose, error) {
	return spatialmath.NewPoseFromRT(p.R, p.T)
}

// UnitJSON is one entry of a units file.
type UnitJSON struct {
	Estimator   string                             `json:"estimator"`
	SceneID     int                                `json:"scene_id"`
	ImageID     int                                `json:"image_id"`
	ObjectID    int                                `json:"object_id"`
	GTIndex     int                                `json:"gt_index"`
	Estimate    PoseJSON                           `json:"estimate"`
	GroundTruth PoseJSON                           `json:"ground_truth"`
	Depth       string                             `json:"depth,omitempty"`
	DepthScale  float64                            `json:"depth_scale,omitempty"`
	Camera      *transform.PinholeCameraIntrinsics `json:"camera,omitempty"`
}

// defaultDepthScale turns BOP millimeter depth images into meters.
const defaultDepthScale = 0.001

// LoadUnits reads a JSON array of units. Depth images are z-depth PNGs as BOP
// ships them and are converted to distance images with the unit's camera.
// Relative depth image paths are resolved against the directory of the
// units file and every image is decoded once, however many units share it.
func LoadUnits(path string) ([]Unit, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening units file")
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "error reading units file")
	}
	var entries []UnitJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "error parsing units file %q", path)
	}

	dir := filepath.Dir(path)
	images := map[string]*rimage.DepthMap{}
	units := make([]Unit, 0, len(entries))
	for i, e := range entries {
		u := Unit{
			Estimator: e.Estimator,
			SceneID:   e.SceneID,
			ImageID:   e.ImageID,
			ObjectID:  e.ObjectID,
			GTIndex:   e.GTIndex,
			Camera:    e.Camera,
		}
		if u.Estimate, err = e.Estimate.Pose(); err != nil {
			return nil, errors.Wrapf(err, "unit %d estimate", i)
		}
		if u.GroundTruth, err = e.GroundTruth.Pose(); err != nil {
			return nil, errors.Wrapf(err, "unit %d ground truth", i)
		}
		if e.Depth != "" {
			depthPath := e.Depth
			if !filepath.IsAbs(depthPath) {
				depthPath = filepath.Join(dir, depthPath)
			}
			scale := e.DepthScale
			if scale == 0 {
				scale = defaultDepthScale
			}
			if e.Camera == nil {
				return nil, errors.Errorf("unit %d has a depth image but no camera", i)
			}
			key := fmt.Sprintf("%s@%v@%v", depthPath, scale, *e.Camera)
			dm, ok := images[key]
			if !ok {
				depth, err := rimage.ParseDepthMap(depthPath, scale)
				if err != nil {
					return nil, errors.Wrapf(err, "unit %d", i)
				}
				if dm, err = e.Camera.DepthToDistance(depth); err != nil {
					return nil, errors.Wrapf(err, "unit %d", i)
				}
				images[key] = dm
			}
			u.Measurement = dm
		}
		units = append(units, u)
	}
	return units, nil
}
