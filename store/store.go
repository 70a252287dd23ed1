// Package store persists evaluation results in a sqlite database so that
// recall can be reported across runs.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	// registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"go.viam.com/bopeval/config"
	"go.viam.com/bopeval/evaluation"
	"go.viam.com/bopeval/logging"
	"go.viam.com/bopeval/poseerror"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when the store holds no errors for a query.
var ErrNotFound = errors.New("no stored results")

// Store is a sqlite result database.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Run describes one recorded evaluation run.
type Run struct {
	ID      uuid.UUID
	Started time.Time
	Elapsed time.Duration
	Units   int
	Failed  int
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", path)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "enabling foreign keys"), db.Close())
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "applying schema"), db.Close())
	}
	logger.Debugw("opened result store", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordResults stores every unit error of results in one transaction.
func (s *Store) RecordResults(ctx context.Context, results *evaluation.Results) (err error) {
	if results == nil {
		return errors.New("no results to record")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, elapsed_ms, units, failed) VALUES (?, ?, ?, ?, ?)`,
		results.RunID.String(), results.Started.UnixNano(), results.Elapsed.Milliseconds(), len(results.Units), results.Failed,
	); err != nil {
		return errors.Wrapf(err, "recording run %s", results.RunID)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO errors
		(run_id, estimator, scene_id, image_id, object_id, gt_index, metric, tau_index, diameter, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, stmt.Close())
	}()

	rows := 0
	for _, u := range results.Units {
		for metric, errs := range u.Errors {
			for i, e := range errs {
				if _, err = stmt.ExecContext(ctx,
					results.RunID.String(), u.Estimator, u.SceneID, u.ImageID, u.ObjectID, u.GTIndex,
					string(metric), i, u.Diameter, e,
				); err != nil {
					return errors.Wrapf(err, "recording %s %s scene %d image %d object %d",
						u.Estimator, metric, u.SceneID, u.ImageID, u.ObjectID)
				}
				rows++
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	s.logger.Infow("recorded results", "run", results.RunID.String(), "units", len(results.Units), "rows", rows)
	return nil
}

// Runs returns the recorded runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, elapsed_ms, units, failed FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			id               string
			started, elapsed int64
			run              Run
		)
		if err := rows.Scan(&id, &started, &elapsed, &run.Units, &run.Failed); err != nil {
			return nil, err
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "run id %q", id)
		}
		run.Started = time.Unix(0, started)
		run.Elapsed = time.Duration(elapsed) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Estimators returns the names of all estimators with stored errors, sorted.
func (s *Store) Estimators(ctx context.Context) ([]string, error) {
	return s.strings(ctx, `SELECT DISTINCT estimator FROM errors ORDER BY estimator`)
}

// Metrics returns the metrics stored for estimator in config.AllMetrics order.
func (s *Store) Metrics(ctx context.Context, estimator string) ([]config.Metric, error) {
	names, err := s.strings(ctx, `SELECT DISTINCT metric FROM errors WHERE estimator = ?`, estimator)
	if err != nil {
		return nil, err
	}
	return lo.Filter(config.AllMetrics, func(m config.Metric, _ int) bool {
		return lo.Contains(names, string(m))
	}), nil
}

// LatestRun returns the most recently started run that recorded errors for
// estimator. It wraps ErrNotFound when there is none.
func (s *Store) LatestRun(ctx context.Context, estimator string) (uuid.UUID, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT r.id FROM runs r
		 WHERE EXISTS (SELECT 1 FROM errors e WHERE e.run_id = r.id AND e.estimator = ?)
		 ORDER BY r.started_at DESC, r.id DESC LIMIT 1`,
		estimator).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, errors.Wrapf(ErrNotFound, "no run of %s", estimator)
	}
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(id)
}

// resolveRun returns run, or the latest run of estimator when run is uuid.Nil.
func (s *Store) resolveRun(ctx context.Context, estimator string, run uuid.UUID) (uuid.UUID, error) {
	if run != uuid.Nil {
		return run, nil
	}
	return s.LatestRun(ctx, estimator)
}

// Errors returns the errors estimator recorded under metric in run. A nil run
// means the latest run of estimator.
func (s *Store) Errors(ctx context.Context, estimator string, metric config.Metric, run uuid.UUID) ([]float64, error) {
	run, err := s.resolveRun(ctx, estimator, run)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT error FROM errors WHERE run_id = ? AND estimator = ? AND metric = ?
		 ORDER BY scene_id, image_id, object_id, gt_index, tau_index`,
		run.String(), estimator, string(metric))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var e float64
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "%s %s in run %s", estimator, metric, run)
	}
	return out, nil
}

type unitKey struct {
	scene, image, object, gtIndex int
}

// UnitResults rebuilds the unit results estimator recorded in run. A nil run
// means the latest run of estimator. An estimator without results yields none.
func (s *Store) UnitResults(ctx context.Context, estimator string, run uuid.UUID) ([]evaluation.UnitResult, error) {
	run, err := s.resolveRun(ctx, estimator, run)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT scene_id, image_id, object_id, gt_index, metric, diameter, error FROM errors
		 WHERE run_id = ? AND estimator = ?
		 ORDER BY scene_id, image_id, object_id, gt_index, metric, tau_index`,
		run.String(), estimator)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.UnitResult
	index := map[unitKey]int{}
	for rows.Next() {
		var (
			key      unitKey
			metric   string
			diameter float64
			e        float64
		)
		if err := rows.Scan(&key.scene, &key.image, &key.object, &key.gtIndex, &metric, &diameter, &e); err != nil {
			return nil, err
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, evaluation.UnitResult{
				Estimator: estimator,
				SceneID:   key.scene,
				ImageID:   key.image,
				ObjectID:  key.object,
				GTIndex:   key.gtIndex,
				Diameter:  diameter,
				Errors:    map[config.Metric][]float64{},
			})
		}
		m := config.Metric(metric)
		out[i].Errors[m] = append(out[i].Errors[m], e)
	}
	return out, rows.Err()
}

// Recall summarizes the errors estimator recorded under metric in run against
// thresholds, with point metrics scaled by each stored object diameter. A nil
// run means the latest run of estimator.
func (s *Store) Recall(
	ctx context.Context,
	estimator string,
	metric config.Metric,
	run uuid.UUID,
	thresholds poseerror.Thresholds,
) (evaluation.MetricSummary, error) {
	units, err := s.UnitResults(ctx, estimator, run)
	if err != nil {
		return evaluation.MetricSummary{}, err
	}
	summary, ok := evaluation.Summarize(estimator, metric, units, thresholds)
	if !ok {
		return evaluation.MetricSummary{}, errors.Wrapf(ErrNotFound, "%s %s", estimator, metric)
	}
	return summary, nil
}

// Summary returns the recall of every estimator in run under every metric it
// recorded. With a nil run each estimator is summarized from its latest run,
// so evaluating the same units again replaces their results instead of
// counting them twice.
func (s *Store) Summary(ctx context.Context, run uuid.UUID, thresholds poseerror.Thresholds) ([]evaluation.MetricSummary, error) {
	var (
		estimators []string
		err        error
	)
	if run == uuid.Nil {
		estimators, err = s.Estimators(ctx)
	} else {
		estimators, err = s.strings(ctx, `SELECT DISTINCT estimator FROM errors WHERE run_id = ? ORDER BY estimator`, run.String())
	}
	if err != nil {
		return nil, err
	}
	var out []evaluation.MetricSummary
	for _, estimator := range estimators {
		units, err := s.UnitResults(ctx, estimator, run)
		if err != nil {
			return nil, err
		}
		s.logger.Debugw("summarizing", "estimator", estimator, "units", len(units))
		for _, metric := range config.AllMetrics {
			if summary, ok := evaluation.Summarize(estimator, metric, units, thresholds); ok {
				out = append(out, summary)
			}
		}
	}
	return out, nil
}

func (s *Store) strings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
