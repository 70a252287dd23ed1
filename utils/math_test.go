package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestFloat64AlmostEqual(t *testing.T) {
	test.That(t, Float64AlmostEqual(0.1+0.2, 0.3, 1e-12), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.0005, 0.001), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.002, 0.001), test.ShouldBeFalse)
	test.That(t, Float64AlmostEqual(math.NaN(), math.NaN(), 1), test.ShouldBeFalse)
}

func TestFinite(t *testing.T) {
	test.That(t, IsFinite(0), test.ShouldBeTrue)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
	test.That(t, IsFinite(math.NaN()), test.ShouldBeFalse)
	test.That(t, AllFinite(), test.ShouldBeTrue)
	test.That(t, AllFinite(1, 2, 3), test.ShouldBeTrue)
	test.That(t, AllFinite(1, math.Inf(1), 3), test.ShouldBeFalse)
}
