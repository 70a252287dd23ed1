package evaluation

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/bopeval/config"
	"go.viam.com/bopeval/logging"
	"go.viam.com/bopeval/pointcloud"
	"go.viam.com/bopeval/spatialmath"
)

// Model is an object model: its points, its diameter and, for VSD, its mesh.
type Model struct {
	id       int
	points   *pointcloud.PointSet
	mesh     *spatialmath.Mesh
	diameter float64
}

// NewModel builds a model from any point input pointcloud.Normalize accepts.
// A nil input takes the points from the mesh.
func NewModel(id int, input interface{}, mesh *spatialmath.Mesh) (*Model, error) {
	return NewModelContext(context.Background(), id, input, mesh)
}

// NewModelContext is NewModel with a cancelable diameter computation.
func NewModelContext(ctx context.Context, id int, input interface{}, mesh *spatialmath.Mesh) (*Model, error) {
	if input == nil && mesh != nil {
		input = mesh
	}
	points, err := pointcloud.Normalize(input)
	if err != nil {
		return nil, errors.Wrapf(err, "object %d", id)
	}
	diameter, err := pointcloud.DiameterContext(ctx, points)
	if err != nil {
		return nil, errors.Wrapf(err, "object %d", id)
	}
	return &Model{id: id, points: points, mesh: mesh, diameter: diameter}, nil
}

// ID returns the object id.
func (m *Model) ID() int {
	return m.id
}

// Points returns the model points.
func (m *Model) Points() *pointcloud.PointSet {
	return m.points
}

// Mesh returns the model mesh, or nil for a point-only model.
func (m *Model) Mesh() *spatialmath.Mesh {
	return m.mesh
}

// Diameter returns the largest distance between two model points.
func (m *Model) Diameter() float64 {
	return m.diameter
}

// LoadModels reads every PLY model listed in cfg, scales it to meters and
// computes its diameter. Models are loaded cfg.Workers at a time.
func LoadModels(ctx context.Context, cfg *config.Config, logger logging.Logger) (map[int]*Model, error) {
	var mu sync.Mutex
	models := make(map[int]*Model, len(cfg.Models))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, id := range cfg.ObjectIDs() {
		path := cfg.Models[id]
		g.Go(func() error {
			mesh, err := spatialmath.NewMeshFromPLYFile(path)
			if err != nil {
				return errors.Wrapf(err, "loading model %d", id)
			}
			model, err := NewModelContext(gctx, id, nil, mesh.Scale(cfg.ModelScale))
			if err != nil {
				return err
			}
			logger.Debugw("loaded model", "object", id, "path", path, "points", model.points.Len(), "diameter", model.diameter)
			mu.Lock()
			models[id] = model
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return models, nil
}
