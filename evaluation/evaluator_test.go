package evaluation

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/bopeval/config"
	"go.viam.com/bopeval/logging"
	"go.viam.com/bopeval/poseerror"
	"go.viam.com/bopeval/render"
	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/rimage/transform"
	"go.viam.com/bopeval/spatialmath"
	"go.viam.com/bopeval/testutils/inject"
)

func cubeMesh(t *testing.T) *spatialmath.Mesh {
	t.Helper()
	var verts []r3.Vector
	for _, x := range []float64{-0.05, 0.05} {
		for _, y := range []float64{-0.05, 0.05} {
			for _, z := range []float64{-0.05, 0.05} {
				verts = append(verts, r3.Vector{X: x, Y: y, Z: z})
			}
		}
	}
	m, err := spatialmath.NewMesh(verts, [][3]int{{0, 1, 3}, {0, 3, 2}}, "cube")
	test.That(t, err, test.ShouldBeNil)
	return m
}

// depthRenderer fills a 2x2 image with the pose's z translation.
func depthRenderer() render.Renderer {
	return &inject.Renderer{
		RenderFunc: func(ctx context.Context, scene render.Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
			dm := rimage.NewEmptyDepthMap(2, 2)
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					dm.Set(x, y, pose.Point().Z)
				}
			}
			return dm, nil
		},
	}
}

func testUnits(t *testing.T) []Unit {
	t.Helper()
	gt := spatialmath.NewPoseFromPoint(r3.Vector{Z: 1})
	camera := &transform.PinholeCameraIntrinsics{Width: 2, Height: 2, Fx: 1, Fy: 1, Ppx: 1, Ppy: 1}
	unit := func(estimator string, gtIndex int, estimate spatialmath.Pose) Unit {
		return Unit{
			Estimator:   estimator,
			SceneID:     2,
			ImageID:     10,
			ObjectID:    1,
			GTIndex:     gtIndex,
			Estimate:    estimate,
			GroundTruth: gt,
			Measurement: rimage.NewEmptyDepthMap(2, 2),
			Camera:      camera,
		}
	}
	return []Unit{
		unit("good", 0, gt),
		unit("good", 1, gt),
		unit("bad", 0, spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Z: 2})),
		unit("bad", 1, spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Z: 2})),
	}
}

func testModels(t *testing.T) map[int]*Model {
	t.Helper()
	model, err := NewModel(1, nil, cubeMesh(t))
	test.That(t, err, test.ShouldBeNil)
	return map[int]*Model{1: model}
}

func TestNewModel(t *testing.T) {
	model, err := NewModel(3, nil, cubeMesh(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.ID(), test.ShouldEqual, 3)
	test.That(t, model.Points().Len(), test.ShouldEqual, 8)
	test.That(t, model.Diameter(), test.ShouldAlmostEqual, 0.1*1.7320508075688772)

	pointOnly, err := NewModel(4, [][]float64{{0, 0, 0}, {0, 0, 2}}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pointOnly.Diameter(), test.ShouldEqual, 2)
	test.That(t, pointOnly.Mesh(), test.ShouldBeNil)

	_, err = NewModel(5, nil, nil)
	test.That(t, err, test.ShouldWrap, poseerror.ErrInvalidGeometry)
}

func TestLoadModels(t *testing.T) {
	dir := t.TempDir()
	ply := `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
100 0 0
0 50 0
3 0 1 2
`
	test.That(t, os.WriteFile(filepath.Join(dir, "obj_000007.ply"), []byte(ply), 0o600), test.ShouldBeNil)

	cfg := config.Default()
	cfg.Models = map[int]string{7: filepath.Join(dir, "obj_000007.ply")}
	models, err := LoadModels(context.Background(), cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(models), test.ShouldEqual, 1)
	test.That(t, models[7].Diameter(), test.ShouldAlmostEqual, 0.1118033988749895)
	test.That(t, models[7].Mesh(), test.ShouldNotBeNil)

	cfg.Models[8] = filepath.Join(dir, "missing.ply")
	_, err = LoadModels(context.Background(), cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loading model 8")
}

func TestEvaluate(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	cfg := config.Default()
	cfg.Workers = 2

	var mu sync.Mutex
	created := 0
	factory := func() (render.Renderer, error) {
		mu.Lock()
		created++
		mu.Unlock()
		return depthRenderer(), nil
	}

	eval, err := NewEvaluator(cfg, logger, testModels(t), factory)
	test.That(t, err, test.ShouldBeNil)
	mock := clock.NewMock()
	eval.SetClock(mock)

	units := append(testUnits(t), Unit{Estimator: "good", ObjectID: 99})
	results, err := eval.Evaluate(context.Background(), units)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, created, test.ShouldEqual, 2)
	test.That(t, results.Started, test.ShouldEqual, mock.Now())
	test.That(t, len(results.Units), test.ShouldEqual, 4)
	test.That(t, results.Failed, test.ShouldEqual, 1)
	test.That(t, results.UnitErrors, test.ShouldNotBeNil)
	test.That(t, results.UnitErrors.Error(), test.ShouldContainSubstring, "no model for object 99")
	test.That(t, logs.FilterMessage("skipping unit").Len(), test.ShouldEqual, 1)

	evaluated, failed := eval.Progress()
	test.That(t, evaluated, test.ShouldEqual, 4)
	test.That(t, failed, test.ShouldEqual, 1)

	test.That(t, results.Units[0].Errors[config.MetricADD], test.ShouldResemble, []float64{0})
	test.That(t, len(results.Units[0].Errors[config.MetricVSD]), test.ShouldEqual, 10)

	test.That(t, results.Estimators(), test.ShouldResemble, []string{"bad", "good"})
	summary := results.Summary()
	test.That(t, len(summary), test.ShouldEqual, 8)
	for _, s := range summary {
		test.That(t, s.Units, test.ShouldEqual, 2)
		test.That(t, len(s.Curve), test.ShouldEqual, 10)
		switch s.Estimator {
		case "good":
			test.That(t, s.Recall, test.ShouldEqual, 1)
			test.That(t, s.MeanError, test.ShouldEqual, 0)
		case "bad":
			test.That(t, s.Recall, test.ShouldEqual, 0)
		}
	}
	test.That(t, summary[0].Metric, test.ShouldEqual, config.MetricADD)
	test.That(t, summary[0].MedianError, test.ShouldAlmostEqual, r3.Vector{X: 1, Z: 1}.Norm())
}

func TestNewEvaluatorDefaults(t *testing.T) {
	cfg := &config.Config{Metrics: []config.Metric{config.MetricADD, config.MetricVSD}}
	eval, err := NewEvaluator(cfg, logging.NewTestLogger(t), testModels(t), func() (render.Renderer, error) {
		return depthRenderer(), nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, eval.cfg.VSDDelta, test.ShouldEqual, poseerror.DefaultDelta)
	test.That(t, eval.cfg.Thresholds, test.ShouldResemble, []float64(poseerror.BOP19Thresholds))
	test.That(t, eval.cfg.Workers, test.ShouldBeGreaterThan, 0)
	// the caller's config is left alone
	test.That(t, cfg.VSDDelta, test.ShouldEqual, 0)
	test.That(t, cfg.Thresholds, test.ShouldBeEmpty)

	results, err := eval.Evaluate(context.Background(), testUnits(t))
	test.That(t, err, test.ShouldBeNil)
	summary := results.Summary()
	test.That(t, len(summary), test.ShouldEqual, 4)
	for _, s := range summary {
		if s.Estimator == "good" {
			test.That(t, s.Recall, test.ShouldEqual, 1)
		}
	}

	// only a zero delta takes the default
	_, err = NewEvaluator(&config.Config{Metrics: []config.Metric{config.MetricADD}, VSDDelta: -1},
		logging.NewTestLogger(t), testModels(t), nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "vsd_delta")
}

func TestEvaluateSharedRenderer(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 3
	cfg.ShareRenderer = true
	created := 0
	factory := func() (render.Renderer, error) {
		created++
		return depthRenderer(), nil
	}
	eval, err := NewEvaluator(cfg, logging.NewTestLogger(t), testModels(t), factory)
	test.That(t, err, test.ShouldBeNil)
	results, err := eval.Evaluate(context.Background(), testUnits(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, created, test.ShouldEqual, 1)
	test.That(t, len(results.Units), test.ShouldEqual, 4)
	test.That(t, results.Failed, test.ShouldEqual, 0)
	test.That(t, results.UnitErrors, test.ShouldBeNil)
}

func TestEvaluateRendererFailures(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 2

	eval, err := NewEvaluator(cfg, logging.NewTestLogger(t), testModels(t), func() (render.Renderer, error) {
		return nil, errors.New("no display")
	})
	test.That(t, err, test.ShouldBeNil)
	_, err = eval.Evaluate(context.Background(), testUnits(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no display")

	failing := &inject.Renderer{
		RenderFunc: func(ctx context.Context, scene render.Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
			return nil, errors.New("lost context")
		},
	}
	eval, err = NewEvaluator(cfg, logging.NewTestLogger(t), testModels(t), func() (render.Renderer, error) {
		return failing, nil
	})
	test.That(t, err, test.ShouldBeNil)
	results, err := eval.Evaluate(context.Background(), testUnits(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results.Failed, test.ShouldEqual, 4)
	test.That(t, results.UnitErrors, test.ShouldWrap, poseerror.ErrRendererFailure)
	test.That(t, results.Summary(), test.ShouldBeEmpty)
}

func TestEvaluatePointMetricsOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics = []config.Metric{config.MetricADDS, config.MetricMDDS}

	_, err := NewEvaluator(config.Default(), logging.NewTestLogger(t), testModels(t), nil)
	test.That(t, err, test.ShouldNotBeNil)

	eval, err := NewEvaluator(cfg, logging.NewTestLogger(t), testModels(t), nil)
	test.That(t, err, test.ShouldBeNil)
	results, err := eval.Evaluate(context.Background(), testUnits(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(results.Summary()), test.ShouldEqual, 4)
	for _, u := range results.Units {
		test.That(t, u.Errors[config.MetricADDS][0], test.ShouldBeLessThanOrEqualTo, u.Errors[config.MetricMDDS][0])
		_, hasVSD := u.Errors[config.MetricVSD]
		test.That(t, hasVSD, test.ShouldBeFalse)
	}
}

func TestEvaluateCanceled(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics = []config.Metric{config.MetricADD}
	eval, err := NewEvaluator(cfg, logging.NewTestLogger(t), testModels(t), nil)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eval.Evaluate(ctx, testUnits(t))
	test.That(t, err, test.ShouldWrap, context.Canceled)
}
