// Package poseerror computes the pose error metrics used to rank 6D object
// pose estimators: ADD, ADD-S, MDD-S and VSD, and the recall statistics
// aggregated over them.
package poseerror

import (
	"github.com/pkg/errors"

	"go.viam.com/bopeval/pointcloud"
	"go.viam.com/bopeval/spatialmath"
)

var (
	// ErrInvalidGeometry is returned for malformed or empty point input.
	ErrInvalidGeometry = pointcloud.ErrInvalidGeometry
	// ErrEmptyPointSet is returned when a metric is asked to reduce over zero points.
	ErrEmptyPointSet = pointcloud.ErrEmptyPointSet
	// ErrDimensionMismatch is returned for malformed poses, point count
	// mismatches and images of different sizes.
	ErrDimensionMismatch = spatialmath.ErrDimensionMismatch
	// ErrRendererFailure matches every error coming out of a renderer.
	ErrRendererFailure = errors.New("renderer failure")
)

// RendererFailureError carries an error returned by a renderer unchanged.
type RendererFailureError struct {
	Err error
}

func (e *RendererFailureError) Error() string {
	return ErrRendererFailure.Error() + ": " + e.Err.Error()
}

// Unwrap returns the renderer's error.
func (e *RendererFailureError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrRendererFailure) hold.
func (e *RendererFailureError) Is(target error) bool {
	return target == ErrRendererFailure
}

func newRendererFailure(err error) error {
	return &RendererFailureError{Err: err}
}

func newDimensionMismatchError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDimensionMismatch, format, args...)
}
