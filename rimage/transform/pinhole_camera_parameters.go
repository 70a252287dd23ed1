// Package transform holds the camera models used to move between 3D points
// and depth image pixels.
package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/bopeval/rimage"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// NewPinholeCameraIntrinsicsFromK builds intrinsics from a row-major 3x3 camera
// matrix, the cam_K layout of BOP camera files.
func NewPinholeCameraIntrinsicsFromK(width, height int, k []float64) (*PinholeCameraIntrinsics, error) {
	if len(k) != 9 {
		return nil, NewNoIntrinsicsError(fmt.Sprintf("camera matrix needs 9 values, got %d", len(k)))
	}
	params := &PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     k[0],
		Fy:     k[4],
		Ppx:    k[2],
		Ppy:    k[5],
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return params, nil
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into PinholeCameraIntrinsics.
func NewPinholeCameraIntrinsicsFromJSONFile(jsonPath string) (*PinholeCameraIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer goutils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &PinholeCameraIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return intrinsics, intrinsics.CheckValid()
}

// PixelToPoint transforms a pixel with depth to a 3D point.
// The intrinsics parameters should be the ones of the sensor used to obtain the image that
// contains the pixel.
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	xOverZ := (x - params.Ppx) / params.Fx
	yOverZ := (y - params.Ppy) / params.Fy
	return xOverZ * z, yOverZ * z, z
}

// ProjectPoint projects a 3D point in the camera frame to continuous pixel
// coordinates. Points at or behind the camera plane project to (-1, -1) and false.
func (params *PinholeCameraIntrinsics) ProjectPoint(p r3.Vector) (float64, float64, bool) {
	if p.Z <= 0 {
		return -1, -1, false
	}
	return (p.X/p.Z)*params.Fx + params.Ppx, (p.Y/p.Z)*params.Fy + params.Ppy, true
}

// PointToPixel projects a 3D point to the nearest pixel in an image plane.
// The intrinsics parameters should be the ones of the sensor we want to project to.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if u, v, ok := params.ProjectPoint(r3.Vector{X: x, Y: y, Z: z}); ok {
		return math.Round(u), math.Round(v)
	}
	// if depth is zero at this pixel, return negative coordinates so that the cropping to image bounds will filter it out
	return -1.0, -1.0
}

// rayScale is the length of the ray through pixel (x, y) per unit of z-depth.
func (params *PinholeCameraIntrinsics) rayScale(x, y int) float64 {
	rx := (float64(x) - params.Ppx) / params.Fx
	ry := (float64(y) - params.Ppy) / params.Fy
	return math.Sqrt(rx*rx + ry*ry + 1)
}

// DepthToDistance converts a z-depth map into a map of distances from the
// camera center, the form VSD compares. Invalid pixels stay invalid.
func (params *PinholeCameraIntrinsics) DepthToDistance(dm *rimage.DepthMap) (*rimage.DepthMap, error) {
	if err := params.checkSize(dm); err != nil {
		return nil, err
	}
	return dm.Map(func(x, y int, z float64) float64 {
		if z <= 0 {
			return 0
		}
		return z * params.rayScale(x, y)
	}), nil
}

// DistanceToDepth is the inverse of DepthToDistance.
func (params *PinholeCameraIntrinsics) DistanceToDepth(dm *rimage.DepthMap) (*rimage.DepthMap, error) {
	if err := params.checkSize(dm); err != nil {
		return nil, err
	}
	return dm.Map(func(x, y int, d float64) float64 {
		if d <= 0 {
			return 0
		}
		return d / params.rayScale(x, y)
	}), nil
}

func (params *PinholeCameraIntrinsics) checkSize(dm *rimage.DepthMap) error {
	if dm == nil {
		return errors.New("input DepthMap is nil")
	}
	if params.Width != dm.Width() || params.Height != dm.Height() {
		return errors.Errorf("depth dimension and intrinsics don't match Depth(%d,%d) != Intrinsics(%d,%d)",
			dm.Width(), dm.Height(), params.Width, params.Height)
	}
	return nil
}
