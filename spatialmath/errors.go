package spatialmath

import (
	"github.com/pkg/errors"
)

// ErrDimensionMismatch is returned for poses that are not well-formed rigid
// transforms and for paired inputs whose sizes disagree.
var ErrDimensionMismatch = errors.New("dimension mismatch")

func newDimensionMismatchError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDimensionMismatch, format, args...)
}

func newInvalidRotationError(format string, args ...interface{}) error {
	return errors.Wrap(newDimensionMismatchError(format, args...), "invalid rotation")
}

// ErrInvalidMesh is returned when a mesh cannot be built from its inputs.
var ErrInvalidMesh = errors.New("invalid mesh")
