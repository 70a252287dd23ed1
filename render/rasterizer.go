package render

import (
	"context"
	"math"

	"go.viam.com/bopeval/logging"
	"go.viam.com/bopeval/rimage"
	"go.viam.com/bopeval/spatialmath"
)

const (
	// vertices closer to the camera plane than this are clipped with their face.
	nearPlane = 1e-4
	// how many faces are drawn between context checks.
	facesPerCtxCheck = 1024
	edgeEpsilon      = 1e-9
)

// Rasterizer is a z-buffer renderer running on the CPU. Pixels are sampled at
// integer image coordinates, the same convention PixelToPoint uses, and every
// call allocates a new output buffer.
type Rasterizer struct {
	logger logging.Logger
}

// NewRasterizer returns a Rasterizer.
func NewRasterizer(logger logging.Logger) *Rasterizer {
	return &Rasterizer{logger: logger}
}

// Render draws scene's mesh at pose and returns distances from the camera center.
func (r *Rasterizer) Render(ctx context.Context, scene Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	if err := spatialmath.ValidatePose(pose); err != nil {
		return nil, err
	}
	zbuf, err := r.rasterize(ctx, scene, pose)
	if err != nil {
		return nil, err
	}
	return scene.Intrinsics.DepthToDistance(zbuf)
}

// RenderPair draws the two poses into two independent buffers.
func (r *Rasterizer) RenderPair(ctx context.Context, scene Scene, a, b spatialmath.Pose) (*rimage.DepthMap, *rimage.DepthMap, error) {
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

func (r *Rasterizer) rasterize(ctx context.Context, scene Scene, pose spatialmath.Pose) (*rimage.DepthMap, error) {
	params := scene.Intrinsics
	zbuf := rimage.NewEmptyDepthMap(params.Width, params.Height)

	clipped := 0
	for fi, tri := range scene.Mesh.Triangles() {
		if fi%facesPerCtxCheck == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		pts := tri.Transform(pose).Points()
		p0, p1, p2 := pts[0], pts[1], pts[2]
		if p0.Z < nearPlane || p1.Z < nearPlane || p2.Z < nearPlane {
			clipped++
			continue
		}
		u0, v0, _ := params.ProjectPoint(p0)
		u1, v1, _ := params.ProjectPoint(p1)
		u2, v2, _ := params.ProjectPoint(p2)
		area := edge(u0, v0, u1, v1, u2, v2)
		if math.Abs(area) < edgeEpsilon {
			continue
		}

		minX := clampInt(int(math.Ceil(math.Min(u0, math.Min(u1, u2)))), 0, params.Width-1)
		maxX := clampInt(int(math.Floor(math.Max(u0, math.Max(u1, u2)))), 0, params.Width-1)
		minY := clampInt(int(math.Ceil(math.Min(v0, math.Min(v1, v2)))), 0, params.Height-1)
		maxY := clampInt(int(math.Floor(math.Max(v0, math.Max(v1, v2)))), 0, params.Height-1)

		for y := minY; y <= maxY; y++ {
			py := float64(y)
			for x := minX; x <= maxX; x++ {
				px := float64(x)
				w0 := edge(u1, v1, u2, v2, px, py) / area
				w1 := edge(u2, v2, u0, v0, px, py) / area
				w2 := edge(u0, v0, u1, v1, px, py) / area
				if w0 < -edgeEpsilon || w1 < -edgeEpsilon || w2 < -edgeEpsilon {
					continue
				}
				// 1/z is linear in screen space
				z := 1 / (w0/p0.Z + w1/p1.Z + w2/p2.Z)
				if cur := zbuf.GetDepth(x, y); cur <= 0 || z < cur {
					zbuf.Set(x, y, z)
				}
			}
		}
	}
	if clipped > 0 {
		r.logger.Debugw("clipped faces behind the near plane", "object", scene.ObjectID, "faces", clipped)
	}
	return zbuf, nil
}

// edge is twice the signed area of the triangle (a, b, p).
func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
