package cli

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/bopeval/config"
	"go.viam.com/bopeval/evaluation"
	"go.viam.com/bopeval/poseerror"
	"go.viam.com/bopeval/render"
	"go.viam.com/bopeval/store"
)

const (
	histogramBins  = 10
	histogramWidth = 40
)

// EvaluateAction evaluates every unit of a units file, prints the recall
// summary and records the errors when the config names a database.
func EvaluateAction(c *cli.Context) (err error) {
	logger := loggerFrom(c)
	cfg, err := config.Read(c.Path(evaluateFlagConfig), logger)
	if err != nil {
		return err
	}
	models, err := evaluation.LoadModels(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	units, err := evaluation.LoadUnits(c.Path(evaluateFlagUnits))
	if err != nil {
		return err
	}
	var factory render.Factory
	if cfg.HasMetric(config.MetricVSD) {
		factory = func() (render.Renderer, error) {
			return render.NewRasterizer(logger), nil
		}
	}
	evaluator, err := evaluation.NewEvaluator(cfg, logger, models, factory)
	if err != nil {
		return err
	}
	results, err := evaluator.Evaluate(c.Context, units)
	if err != nil {
		return err
	}

	summaries := results.Summary()
	printSummaries(c.App.Writer, summaries)
	if results.Failed > 0 {
		fmt.Fprintf(c.App.Writer, "%d of %d units failed, see the log\n", results.Failed, len(units))
	}

	if cfg.Database != "" {
		db, err := store.Open(c.Context, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, db.Close())
		}()
		if err := db.RecordResults(c.Context, results); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "recorded run %s in %s\n", results.RunID, cfg.Database)
	}
	if plotPath := c.Path(reportFlagPlot); plotPath != "" && len(summaries) > 0 {
		return evaluation.SaveRecallPlot(summaries, results.Thresholds, plotPath)
	}
	return nil
}

// ReportAction prints the recall of every estimator stored in a database,
// taken from the latest run of each estimator unless --run names one.
func ReportAction(c *cli.Context) (err error) {
	db, err := store.Open(c.Context, c.Path(reportFlagDatabase), loggerFrom(c))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, db.Close())
	}()

	run := uuid.Nil
	if id := c.String(reportFlagRun); id != "" {
		if run, err = uuid.Parse(id); err != nil {
			return errors.Wrapf(err, "--%s", reportFlagRun)
		}
	}
	thresholds := poseerror.Thresholds(c.Float64Slice(reportFlagThresholds))
	if len(thresholds) == 0 {
		thresholds = poseerror.BOP19Thresholds
	}
	summaries, err := db.Summary(c.Context, run, thresholds)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(c.App.Writer, "no results recorded")
		return nil
	}
	printSummaries(c.App.Writer, summaries)

	if c.Bool(reportFlagHistogram) {
		for _, s := range summaries {
			errs, err := db.Errors(c.Context, s.Estimator, s.Metric, run)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "\n%s %s errors\n", s.Estimator, s.Metric)
			hist := histogram.Hist(histogramBins, errs)
			if err := histogram.Fprint(c.App.Writer, hist, histogram.Linear(histogramWidth)); err != nil {
				return err
			}
		}
	}
	if plotPath := c.Path(reportFlagPlot); plotPath != "" {
		return evaluation.SaveRecallPlot(summaries, thresholds, plotPath)
	}
	return nil
}

// ConfigSchemaAction prints the JSON schema of the configuration file.
func ConfigSchemaAction(c *cli.Context) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(schema))
	return nil
}

func printSummaries(w io.Writer, summaries []evaluation.MetricSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Estimator", "Metric", "Units", "Recall", "Mean error", "Median error"})
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.Estimator,
			string(s.Metric),
			s.Units,
			fmt.Sprintf("%.4f", s.Recall),
			fmt.Sprintf("%.4f", s.MeanError),
			fmt.Sprintf("%.4f", s.MedianError),
		})
	}
	t.Render()
}
