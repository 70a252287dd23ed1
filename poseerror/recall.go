package poseerror

import (
	"gonum.org/v1/gonum/floats"
)

// Thresholds is an ordered grid of error thresholds.
type Thresholds []float64

// BOP19Thresholds is the BOP19 grid 0.05, 0.10, ..., 0.50. It is written out
// so that every value is the nearest float64 to its decimal.
var BOP19Thresholds = Thresholds{0.05, 0.10, 0.15, 0.20, 0.25, 0.30, 0.35, 0.40, 0.45, 0.50}

// Scaled returns a new grid with every threshold multiplied by k.
func (t Thresholds) Scaled(k float64) Thresholds {
	out := make(Thresholds, len(t))
	copy(out, t)
	floats.Scale(k, out)
	return out
}

// RecallTable records, for every sample and threshold, whether the sample's
// error is below the threshold.
type RecallTable struct {
	thresholds Thresholds
	correct    [][]bool
}

// NewRecallTable builds the table of sample < threshold*scale. Scale is 1 for
// VSD and the object diameter for point distance metrics.
func NewRecallTable(samples []float64, thresholds Thresholds, scale float64) *RecallTable {
	limits := thresholds.Scaled(scale)
	correct := make([][]bool, len(samples))
	for i, s := range samples {
		row := make([]bool, len(limits))
		for j, limit := range limits {
			row[j] = s < limit
		}
		correct[i] = row
	}
	return &RecallTable{thresholds: thresholds, correct: correct}
}

// Append adds the rows of other to rt. Both tables must use the same
// thresholds; their scales may differ, which is how samples of objects with
// different diameters end up in one table.
func (rt *RecallTable) Append(other *RecallTable) error {
	if !floats.Equal(rt.thresholds, other.thresholds) {
		return newDimensionMismatchError("recall tables have thresholds %v and %v", rt.thresholds, other.thresholds)
	}
	rt.correct = append(rt.correct, other.correct...)
	return nil
}

// Samples returns the number of rows.
func (rt *RecallTable) Samples() int {
	return len(rt.correct)
}

// Thresholds returns the unscaled thresholds of the columns.
func (rt *RecallTable) Thresholds() Thresholds {
	return rt.thresholds
}

// Correct reports whether sample i passed threshold j.
func (rt *RecallTable) Correct(i, j int) bool {
	return rt.correct[i][j]
}

// Curve returns the recall at each threshold. Without samples every entry is 0.
func (rt *RecallTable) Curve() []float64 {
	curve := make([]float64, len(rt.thresholds))
	if len(rt.correct) == 0 {
		return curve
	}
	for _, row := range rt.correct {
		for j, ok := range row {
			if ok {
				curve[j]++
			}
		}
	}
	n := float64(len(rt.correct))
	for j := range curve {
		curve[j] /= n
	}
	return curve
}

// Mean returns the mean over the whole table, the average recall. An empty
// table has recall 0.
func (rt *RecallTable) Mean() float64 {
	if len(rt.correct) == 0 || len(rt.thresholds) == 0 {
		return 0
	}
	return floats.Sum(rt.Curve()) / float64(len(rt.thresholds))
}

// AvgRecall is the fraction of (sample, threshold) pairs with sample < threshold.
func AvgRecall(samples []float64, thresholds Thresholds) float64 {
	return NewRecallTable(samples, thresholds, 1).Mean()
}

// AvgRecallScaled is AvgRecall with every threshold multiplied by diameter.
func AvgRecallScaled(samples []float64, thresholds Thresholds, diameter float64) float64 {
	return NewRecallTable(samples, thresholds, diameter).Mean()
}
