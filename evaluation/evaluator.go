package evaluation

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/bopeval/config"
	"go.viam.com/bopeval/logging"
	"go.viam.com/bopeval/poseerror"
	"go.viam.com/bopeval/render"
)

// Evaluator computes the configured metrics for batches of units.
type Evaluator struct {
	cfg     *config.Config
	logger  logging.Logger
	models  map[int]*Model
	factory render.Factory
	clock   clock.Clock

	evaluated atomic.Int64
	failed    atomic.Int64
}

// NewEvaluator returns an Evaluator. Unset config fields take their defaults,
// cfg itself is not modified. The factory may be nil when VSD is not among the
// configured metrics.
func NewEvaluator(cfg *config.Config, logger logging.Logger, models map[int]*Model, factory render.Factory) (*Evaluator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	withDefaults := *cfg
	cfg = &withDefaults
	cfg.ApplyDefaults()
	if err := cfg.Validate(cfg.ConfigFilePath); err != nil {
		return nil, err
	}
	if cfg.HasMetric(config.MetricVSD) && factory == nil {
		return nil, errors.New("vsd needs a renderer factory")
	}
	return &Evaluator{
		cfg:     cfg,
		logger:  logger,
		models:  models,
		factory: factory,
		clock:   clock.New(),
	}, nil
}

// SetClock replaces the clock used to time runs.
func (e *Evaluator) SetClock(c clock.Clock) {
	e.clock = c
}

// Progress returns how many units have been evaluated and how many failed
// since the Evaluator was created.
func (e *Evaluator) Progress() (int64, int64) {
	return e.evaluated.Load(), e.failed.Load()
}

func (e *Evaluator) needsRenderer() bool {
	return e.cfg.HasMetric(config.MetricVSD)
}

// Evaluate computes every configured metric for every unit. A unit that fails
// is logged and left out of the results; its error is collected in
// Results.UnitErrors. Only a canceled context or a renderer that cannot be
// created aborts the run.
func (e *Evaluator) Evaluate(ctx context.Context, units []Unit) (*Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := e.clock.Now()
	runID := uuid.New()
	logger := e.logger.With("run", runID.String())
	logger.Infow("evaluating", "units", len(units), "metrics", e.cfg.Metrics, "workers", e.cfg.Workers)

	var shared render.Renderer
	if e.needsRenderer() && e.cfg.ShareRenderer {
		r, err := e.factory()
		if err != nil {
			return nil, errors.Wrap(err, "creating shared renderer")
		}
		shared = render.NewSerialized(r)
	}

	workers := max(min(e.cfg.Workers, len(units)), 1)
	out := make([]*UnitResult, len(units))
	var (
		errMu    sync.Mutex
		unitErrs error
	)

	work := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers + 1)
	g.Go(func() error {
		defer close(work)
		for i := range units {
			select {
			case work <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			renderer := shared
			if e.needsRenderer() && renderer == nil {
				r, err := e.factory()
				if err != nil {
					return errors.Wrapf(err, "creating renderer for worker %d", w)
				}
				renderer = r
			}
			for i := range work {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := e.evaluateUnit(gctx, renderer, units[i])
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					e.failed.Inc()
					logger.Warnw("skipping unit", "unit", units[i].String(), "error", err)
					errMu.Lock()
					unitErrs = multierr.Append(unitErrs, errors.Wrap(err, units[i].String()))
					errMu.Unlock()
					continue
				}
				e.evaluated.Inc()
				out[i] = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := &Results{
		RunID:      runID,
		Started:    started,
		Elapsed:    e.clock.Since(started),
		Metrics:    append([]config.Metric(nil), e.cfg.Metrics...),
		Thresholds: e.cfg.RecallThresholds(),
		UnitErrors: unitErrs,
	}
	for _, res := range out {
		if res == nil {
			results.Failed++
			continue
		}
		results.Units = append(results.Units, *res)
	}
	logger.Infow("evaluated", "units", len(results.Units), "failed", results.Failed, "elapsed", results.Elapsed)
	return results, nil
}

func (e *Evaluator) evaluateUnit(ctx context.Context, renderer render.Renderer, u Unit) (*UnitResult, error) {
	model, ok := e.models[u.ObjectID]
	if !ok {
		return nil, errors.Errorf("no model for object %d", u.ObjectID)
	}
	res := &UnitResult{
		Estimator: u.Estimator,
		SceneID:   u.SceneID,
		ImageID:   u.ImageID,
		ObjectID:  u.ObjectID,
		GTIndex:   u.GTIndex,
		Diameter:  model.Diameter(),
		Errors:    make(map[config.Metric][]float64, len(e.cfg.Metrics)),
	}

	if e.cfg.HasMetric(config.MetricADD) {
		add, err := poseerror.ADDError(model.Points(), u.Estimate, u.GroundTruth)
		if err != nil {
			return nil, errors.Wrap(err, "add")
		}
		res.Errors[config.MetricADD] = []float64{add}
	}

	if e.cfg.HasMetric(config.MetricADDS) || e.cfg.HasMetric(config.MetricMDDS) {
		// ADD-S and MDD-S reduce the same distances
		dists, err := poseerror.NearestNeighborDistancesContext(ctx, model.Points(), u.Estimate, u.GroundTruth)
		if err != nil {
			return nil, errors.Wrap(err, "nearest neighbor distances")
		}
		if e.cfg.HasMetric(config.MetricADDS) {
			mean, err := stats.Mean(dists)
			if err != nil {
				return nil, errors.Wrap(poseerror.ErrEmptyPointSet, err.Error())
			}
			res.Errors[config.MetricADDS] = []float64{mean}
		}
		if e.cfg.HasMetric(config.MetricMDDS) {
			worst, err := stats.Max(dists)
			if err != nil {
				return nil, errors.Wrap(poseerror.ErrEmptyPointSet, err.Error())
			}
			res.Errors[config.MetricMDDS] = []float64{worst}
		}
	}

	if e.cfg.HasMetric(config.MetricVSD) {
		if model.Mesh() == nil {
			return nil, errors.Errorf("object %d has no mesh to render", u.ObjectID)
		}
		if u.Measurement == nil || u.Camera == nil {
			return nil, errors.New("vsd needs a measured depth image and camera intrinsics")
		}
		scene := render.Scene{ObjectID: u.ObjectID, Mesh: model.Mesh(), Intrinsics: u.Camera}
		vsd, err := poseerror.VSDErrorsBOP19(ctx, renderer, u.Estimate, u.GroundTruth, u.Measurement, scene, model.Diameter(), e.cfg.VSDDelta)
		if err != nil {
			return nil, errors.Wrap(err, "vsd")
		}
		res.Errors[config.MetricVSD] = vsd
	}
	return res, nil
}
