// Package config defines the JSON document that drives an evaluation run.
package config

import (
	"math"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/bopeval/poseerror"
	"go.viam.com/bopeval/utils"
)

// Metric names a pose error metric.
type Metric string

// The metrics an evaluation can compute.
const (
	MetricADD  Metric = "add"
	MetricADDS Metric = "adds"
	MetricMDDS Metric = "mdds"
	MetricVSD  Metric = "vsd"
)

// AllMetrics lists every metric in report order.
var AllMetrics = []Metric{MetricADD, MetricADDS, MetricMDDS, MetricVSD}

// IsPointMetric reports whether m compares model points, as opposed to rendered images.
func (m Metric) IsPointMetric() bool {
	return m == MetricADD || m == MetricADDS || m == MetricMDDS
}

// Default values applied to fields left unset.
const (
	DefaultModelScale = 0.001
)

// Config describes an evaluation run.
type Config struct {
	ConfigFilePath string `json:"-"`

	Metrics       []Metric       `json:"metrics,omitempty" jsonschema:"description=subset of add adds mdds vsd"`
	VSDDelta      float64        `json:"vsd_delta,omitempty" jsonschema:"description=VSD visibility tolerance in meters"`
	Thresholds    []float64      `json:"thresholds,omitempty" jsonschema:"description=recall thresholds as fractions"`
	Workers       int            `json:"workers,omitempty"`
	ShareRenderer bool           `json:"share_renderer,omitempty"`
	ModelScale    float64        `json:"model_scale,omitempty" jsonschema:"description=PLY units to meters"`
	Models        map[int]string `json:"models,omitempty" jsonschema:"description=object id to PLY path"`
	Database      string         `json:"database,omitempty"`
	Debug         bool           `json:"debug,omitempty"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default. A vsd_delta of
// 0 means poseerror.DefaultDelta.
func (c *Config) ApplyDefaults() {
	if len(c.Metrics) == 0 {
		c.Metrics = append([]Metric(nil), AllMetrics...)
	}
	if c.VSDDelta == 0 {
		c.VSDDelta = poseerror.DefaultDelta
	}
	if len(c.Thresholds) == 0 {
		c.Thresholds = append([]float64(nil), poseerror.BOP19Thresholds...)
	}
	if c.Workers == 0 {
		c.Workers = utils.ParallelFactor
	}
	if c.ModelScale == 0 {
		c.ModelScale = DefaultModelScale
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	for _, m := range c.Metrics {
		if !lo.Contains(AllMetrics, m) {
			return NewConfigValidationError(path, errors.Errorf("unknown metric %q", m))
		}
	}
	if dups := lo.FindDuplicates(c.Metrics); len(dups) > 0 {
		return NewConfigValidationError(path, errors.Errorf("metric %q listed more than once", dups[0]))
	}
	if c.VSDDelta < 0 || !utils.IsFinite(c.VSDDelta) {
		return NewConfigValidationError(path, errors.Errorf("vsd_delta must be a non-negative number, got %v", c.VSDDelta))
	}
	for i, th := range c.Thresholds {
		if th <= 0 || !utils.IsFinite(th) {
			return NewConfigValidationError(path, errors.Errorf("thresholds[%d] must be positive, got %v", i, th))
		}
		if i > 0 && th <= c.Thresholds[i-1] {
			return NewConfigValidationError(path, errors.Errorf("thresholds must be increasing, %v follows %v", th, c.Thresholds[i-1]))
		}
	}
	if c.Workers < 0 {
		return NewConfigValidationError(path, errors.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.ModelScale < 0 || math.IsNaN(c.ModelScale) || math.IsInf(c.ModelScale, 0) {
		return NewConfigValidationError(path, errors.Errorf("model_scale must be positive, got %v", c.ModelScale))
	}
	for _, id := range c.ObjectIDs() {
		if id < 0 {
			return NewConfigValidationError(path, errors.Errorf("object id %d is negative", id))
		}
		if c.Models[id] == "" {
			return NewConfigValidationFieldRequiredError(path, "models."+strconv.Itoa(id))
		}
	}
	return nil
}

// HasMetric reports whether m is enabled.
func (c *Config) HasMetric(m Metric) bool {
	return lo.Contains(c.Metrics, m)
}

// ObjectIDs returns the configured object ids in increasing order.
func (c *Config) ObjectIDs() []int {
	ids := lo.Keys(c.Models)
	sort.Ints(ids)
	return ids
}

// RecallThresholds returns the thresholds as a recall grid.
func (c *Config) RecallThresholds() poseerror.Thresholds {
	return poseerror.Thresholds(c.Thresholds)
}
