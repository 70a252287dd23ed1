package evaluation

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SaveRecallPlot draws the recall curve of every summary against the
// thresholds and writes it to path. The format follows the file extension.
func SaveRecallPlot(summaries []MetricSummary, thresholds []float64, path string) error {
	if len(summaries) == 0 {
		return errors.New("nothing to plot")
	}
	p := plot.New()
	p.Title.Text = "Recall"
	p.X.Label.Text = "Threshold"
	p.Y.Label.Text = "Recall"
	p.Y.Min = 0
	p.Y.Max = 1
	p.Add(plotter.NewGrid())

	lines := make([]interface{}, 0, 2*len(summaries))
	for _, s := range summaries {
		if len(s.Curve) != len(thresholds) {
			return errors.Errorf("%s %s has %d recall values for %d thresholds", s.Estimator, s.Metric, len(s.Curve), len(thresholds))
		}
		pts := make(plotter.XYs, len(thresholds))
		for i, th := range thresholds {
			pts[i].X = th
			pts[i].Y = s.Curve[i]
		}
		lines = append(lines, fmt.Sprintf("%s %s", s.Estimator, s.Metric), pts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
