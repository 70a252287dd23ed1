package config

import (
	"github.com/pkg/errors"
)

// NewConfigValidationError returns a config validation error occurring
// at a given path.
func NewConfigValidationError(path string, err error) error {
	if path == "" {
		return errors.Wrap(err, "error validating config")
	}
	return errors.Wrapf(err, "error validating %q", path)
}

// NewConfigValidationFieldRequiredError returns a config validation error
// for a field missing at a given path.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}
