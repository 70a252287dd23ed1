package render_test

import (
	"context"
	"sync"
	"testing"

	"go.viam.com/test"

	"go.viam.com/bopeval/render"
	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/spatialmath"
	"go.viam.com/bopeval/testutils/inject"
)

// reusingRenderer writes every result into one buffer.
func reusingRenderer() *inject.Renderer {
	buf := rimage.NewEmptyDepthMap(2, 1)
	calls := 0
	return &inject.Renderer{
		RenderFunc: func(ctx context.Context, scene render.Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
			calls++
			buf.Set(0, 0, float64(calls))
			return buf, nil
		},
	}
}

func TestOwnedBuffer(t *testing.T) {
	raw := reusingRenderer()
	a, b, err := render.RenderPair(context.Background(), raw, render.Scene{}, spatialmath.NewZeroPose(), spatialmath.NewZeroPose())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a, test.ShouldEqual, b)

	owned := render.NewOwnedBuffer(reusingRenderer())
	a, b, err = owned.RenderPair(context.Background(), render.Scene{}, spatialmath.NewZeroPose(), spatialmath.NewZeroPose())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.GetDepth(0, 0), test.ShouldEqual, 1)
	test.That(t, b.GetDepth(0, 0), test.ShouldEqual, 2)
}

func TestRenderPairPrefersDual(t *testing.T) {
	renderCalls := 0
	dual := &inject.DualRenderer{
		Renderer: inject.Renderer{
			RenderFunc: func(ctx context.Context, scene render.Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
				renderCalls++
				return rimage.NewEmptyDepthMap(1, 1), nil
			},
		},
		RenderPairFunc: func(ctx context.Context, scene render.Scene, a, b spatialmath.Pose) (*rimage.DepthMap, *rimage.DepthMap, error) {
			return rimage.NewEmptyDepthMap(1, 1), rimage.NewEmptyDepthMap(1, 1), nil
		},
	}
	_, _, err := render.RenderPair(context.Background(), dual, render.Scene{}, spatialmath.NewZeroPose(), spatialmath.NewZeroPose())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, renderCalls, test.ShouldEqual, 0)
}

func TestSerialized(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	inner := &inject.Renderer{
		RenderFunc: func(ctx context.Context, scene render.Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			dm := rimage.NewEmptyDepthMap(1, 1)
			dm.Set(0, 0, pose.Point().X)
			mu.Lock()
			active--
			mu.Unlock()
			return dm, nil
		},
	}
	shared := render.NewSerialized(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, b, err := shared.RenderPair(context.Background(), render.Scene{}, spatialmath.NewZeroPose(), spatialmath.NewZeroPose())
			test.That(t, err, test.ShouldBeNil)
			test.That(t, a, test.ShouldNotEqual, b)
		}()
	}
	wg.Wait()
	test.That(t, maxActive, test.ShouldEqual, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := shared.Render(ctx, render.Scene{}, spatialmath.NewZeroPose())
	test.That(t, err, test.ShouldBeError, context.Canceled)
}
