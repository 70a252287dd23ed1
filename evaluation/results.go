package evaluation

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"

	"go.viam.com/bopeval/config"
	"go.viam.com/bopeval/poseerror"
)

// Results are the per-unit errors of one Evaluate call.
type Results struct {
	RunID      uuid.UUID
	Started    time.Time
	Elapsed    time.Duration
	Metrics    []config.Metric
	Thresholds poseerror.Thresholds
	Units      []UnitResult
	Failed     int
	// UnitErrors combines the errors of the skipped units.
	UnitErrors error
}

// MetricSummary is the recall of one estimator under one metric.
type MetricSummary struct {
	Estimator   string
	Metric      config.Metric
	Units       int
	Recall      float64
	Curve       []float64
	MeanError   float64
	MedianError float64
}

// Estimators returns the estimators with at least one evaluated unit, sorted.
func (r *Results) Estimators() []string {
	names := lo.Uniq(lo.Map(r.Units, func(u UnitResult, _ int) string { return u.Estimator }))
	sort.Strings(names)
	return names
}

// Summary returns the recall of every estimator under every metric, ordered
// by estimator and then metric.
func (r *Results) Summary() []MetricSummary {
	var out []MetricSummary
	for _, estimator := range r.Estimators() {
		units := lo.Filter(r.Units, func(u UnitResult, _ int) bool { return u.Estimator == estimator })
		for _, metric := range r.Metrics {
			if s, ok := Summarize(estimator, metric, units, r.Thresholds); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// Summarize computes the recall of metric over units. Point metric errors are
// compared to thresholds scaled by each object's diameter, VSD errors to the
// thresholds themselves. ok is false when no unit has the metric.
func Summarize(estimator string, metric config.Metric, units []UnitResult, thresholds poseerror.Thresholds) (MetricSummary, bool) {
	table := poseerror.NewRecallTable(nil, thresholds, 1)
	var all []float64
	count := 0
	for _, u := range units {
		errs, ok := u.Errors[metric]
		if !ok {
			continue
		}
		count++
		scale := 1.0
		if metric.IsPointMetric() {
			scale = u.Diameter
		}
		// same thresholds on both sides, so Append cannot fail
		_ = table.Append(poseerror.NewRecallTable(errs, thresholds, scale))
		all = append(all, errs...)
	}
	if count == 0 {
		return MetricSummary{}, false
	}
	mean, _ := stats.Mean(all)
	median, _ := stats.Median(all)
	return MetricSummary{
		Estimator:   estimator,
		Metric:      metric,
		Units:       count,
		Recall:      table.Mean(),
		Curve:       table.Curve(),
		MeanError:   mean,
		MedianError: median,
	}, true
}
