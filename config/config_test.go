package config

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/bopeval/poseerror"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Metrics, test.ShouldResemble, AllMetrics)
	test.That(t, cfg.VSDDelta, test.ShouldEqual, 0.015)
	test.That(t, cfg.RecallThresholds(), test.ShouldResemble, poseerror.BOP19Thresholds)
	test.That(t, cfg.Workers, test.ShouldBeGreaterThanOrEqualTo, 1)
	test.That(t, cfg.ModelScale, test.ShouldEqual, 0.001)
	test.That(t, cfg.Validate("cfg"), test.ShouldBeNil)

	cfg.Thresholds[0] = 1
	test.That(t, poseerror.BOP19Thresholds[0], test.ShouldEqual, 0.05)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown metric", func(c *Config) { c.Metrics = []Metric{"iou"} }, `unknown metric "iou"`},
		{"duplicate metric", func(c *Config) { c.Metrics = []Metric{MetricADD, MetricADD} }, "more than once"},
		{"negative delta", func(c *Config) { c.VSDDelta = -1 }, "vsd_delta"},
		{"zero threshold", func(c *Config) { c.Thresholds = []float64{0, 0.1} }, "thresholds[0]"},
		{"unordered thresholds", func(c *Config) { c.Thresholds = []float64{0.2, 0.1} }, "increasing"},
		{"negative workers", func(c *Config) { c.Workers = -2 }, "workers"},
		{"negative scale", func(c *Config) { c.ModelScale = -1 }, "model_scale"},
		{"negative object", func(c *Config) { c.Models = map[int]string{-1: "a.ply"} }, "negative"},
		{"empty model path", func(c *Config) { c.Models = map[int]string{4: ""} }, `"models.4" is required`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate("eval.json")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errMsg)
			test.That(t, err.Error(), test.ShouldContainSubstring, `error validating "eval.json"`)
		})
	}
}

func TestMetrics(t *testing.T) {
	cfg := &Config{Metrics: []Metric{MetricADDS, MetricVSD}}
	test.That(t, cfg.HasMetric(MetricVSD), test.ShouldBeTrue)
	test.That(t, cfg.HasMetric(MetricADD), test.ShouldBeFalse)
	test.That(t, MetricMDDS.IsPointMetric(), test.ShouldBeTrue)
	test.That(t, MetricVSD.IsPointMetric(), test.ShouldBeFalse)

	cfg.Models = map[int]string{9: "c", 2: "a", 5: "b"}
	test.That(t, cfg.ObjectIDs(), test.ShouldResemble, []int{2, 5, 9})
}

func TestSchema(t *testing.T) {
	schema, err := Schema()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(schema), test.ShouldContainSubstring, `"vsd_delta"`)
	test.That(t, string(schema), test.ShouldContainSubstring, "VSD visibility tolerance in meters")
	test.That(t, string(schema), test.ShouldNotContainSubstring, "ConfigFilePath")
}
