// Package render defines how object models are drawn into distance images and
// provides a CPU reference rasterizer.
package render

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/rimage/transform"
	"go.viam.com/bopeval/spatialmath"
)

// Scene is what a renderer draws: one object mesh seen through one camera.
type Scene struct {
	ObjectID   int
	Mesh       *spatialmath.Mesh
	Intrinsics *transform.PinholeCameraIntrinsics
}

// Validate checks that the scene can be rendered.
func (s Scene) Validate() error {
	if s.Mesh == nil {
		return errors.Errorf("scene for object %d has no mesh", s.ObjectID)
	}
	return s.Intrinsics.CheckValid()
}

// A Renderer draws a scene's object at a pose and returns a distance image:
// each pixel holds the distance from the camera center to the visible
// surface, 0 where the object does not project.
//
// Every call must return a buffer the caller owns. A renderer that reuses an
// internal buffer has to be wrapped with NewOwnedBuffer.
type Renderer interface {
	Render(ctx context.Context, scene Scene, pose spatialmath.Pose) (*rimage.DepthMap, error)
}

// A DualRenderer draws the same scene at two poses in one call.
type DualRenderer interface {
	Renderer
	RenderPair(ctx context.Context, scene Scene, a, b spatialmath.Pose) (*rimage.DepthMap, *rimage.DepthMap, error)
}

// Factory creates a renderer. Each evaluation worker calls it once.
type Factory func() (Renderer, error)

// RenderPair draws a and b with r, in one call when r is a DualRenderer.
func RenderPair(ctx context.Context, r Renderer, scene Scene, a, b spatialmath.Pose) (*rimage.DepthMap, *rimage.DepthMap, error) {
	if dual, ok := r.(DualRenderer); ok {
		return dual.RenderPair(ctx, scene, a, b)
	}
	first, err := r.Render(ctx, scene, a)
	if err != nil {
		return nil, nil, err
	}
	second, err := r.Render(ctx, scene, b)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}
