package render

import (
	"context"
	"sync"

	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/spatialmath"
)

type ownedBuffer struct {
	r Renderer
}

// NewOwnedBuffer wraps a renderer that hands back the same internal buffer
// on every call. The returned renderer copies each result before returning it.
func NewOwnedBuffer(r Renderer) DualRenderer {
	return &ownedBuffer{r: r}
}

func (o *ownedBuffer) Render(ctx context.Context, scene Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
	dm, err := o.r.Render(ctx, scene, pose)
	if err != nil {
		return nil, err
	}
	return dm.Clone(), nil
}

// RenderPair renders sequentially so the first copy is taken before the
// second call can overwrite the shared buffer.
func (o *ownedBuffer) RenderPair(ctx context.Context, scene Scene, a, b spatialmath.Pose) (*rimage.DepthMap, *rimage.DepthMap, error) {
	first, err := o.Render(ctx, scene, a)
	if err != nil {
		return nil, nil, err
	}
	second, err := o.Render(ctx, scene, b)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

type serialized struct {
	mu sync.Mutex
	r  Renderer
}

// NewSerialized wraps a renderer so that it can be shared between goroutines.
// Calls are executed one at a time.
func NewSerialized(r Renderer) DualRenderer {
	return &serialized{r: r}
}

func (s *serialized) Render(ctx context.Context, scene Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.r.Render(ctx, scene, pose)
}

func (s *serialized) RenderPair(ctx context.Context, scene Scene, a, b spatialmath.Pose) (*rimage.DepthMap, *rimage.DepthMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return RenderPair(ctx, s.r, scene, a, b)
}
