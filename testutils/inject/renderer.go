// Package inject provides dependency injected structures for mocking interfaces.
package inject

import (
	"context"

	"go.viam.com/bopeval/render"
	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/spatialmath"
)

// Renderer is an injected renderer.
type Renderer struct {
	render.Renderer
	RenderFunc func(ctx context.Context, scene render.Scene, pose spatialmath.Pose) (*rimage.DepthMap, error)
}

// Render calls the injected Render or the real version.
func (r *Renderer) Render(ctx context.Context, scene render.Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
	if r.RenderFunc == nil {
		return r.Renderer.Render(ctx, scene, pose)
	}
	return r.RenderFunc(ctx, scene, pose)
}

// DualRenderer is an injected renderer that can draw two poses in one call.
type DualRenderer struct {
	Renderer
	RenderPairFunc func(ctx context.Context, scene render.Scene, a, b spatialmath.Pose) (*rimage.DepthMap, *rimage.DepthMap, error)
}

// RenderPair calls the injected RenderPair or renders both poses with Render.
func (r *DualRenderer) RenderPair(
	ctx context.Context,
	scene render.Scene,
	a, b spatialmath.Pose,
) (*rimage.DepthMap, *rimage.DepthMap, error) {
	if r.RenderPairFunc == nil {
		return render.RenderPair(ctx, &r.Renderer, scene, a, b)
	}
	return r.RenderPairFunc(ctx, scene, a, b)
}
