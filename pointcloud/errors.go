package pointcloud

import "github.com/pkg/errors"

var (
	// ErrInvalidGeometry is returned when point input has the wrong shape, is empty,
	// or holds non-finite coordinates.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrEmptyPointSet is returned when a reduction over points has nothing to reduce.
	ErrEmptyPointSet = errors.New("empty point set")
)

func newInvalidGeometryError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidGeometry, format, args...)
}
