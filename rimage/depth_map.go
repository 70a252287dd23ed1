// Package rimage holds the image types the evaluator consumes, most
// importantly depth images in meters.
package rimage

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// DepthMap is a dense image of distances in meters. A value <= 0 means the
// pixel has no valid reading.
type DepthMap struct {
	width  int
	height int

	data []float64
}

// NewEmptyDepthMap returns a zeroed depth map of the given size.
func NewEmptyDepthMap(width, height int) *DepthMap {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]float64, width*height),
	}
}

// NewDepthMapFromRows builds a depth map from rows of pixels, rows[y][x].
// Every row must have the same length and no value may be NaN.
func NewDepthMapFromRows(rows [][]float64) (*DepthMap, error) {
	if len(rows) == 0 {
		return NewEmptyDepthMap(0, 0), nil
	}
	width := len(rows[0])
	dm := NewEmptyDepthMap(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, errors.Errorf("depth row %d has %d pixels, want %d", y, len(row), width)
		}
		for x, v := range row {
			if math.IsNaN(v) {
				return nil, errors.Errorf("depth at (%d,%d) is NaN", x, y)
			}
			dm.data[y*width+x] = v
		}
	}
	return dm, nil
}

// Width returns the horizontal size of the DepthMap.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical size of the DepthMap.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle dimensions of the image.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// GetDepth returns the depth at column x, row y.
func (dm *DepthMap) GetDepth(x, y int) float64 {
	return dm.data[y*dm.width+x]
}

// Get returns the depth at p.
func (dm *DepthMap) Get(p image.Point) float64 {
	return dm.GetDepth(p.X, p.Y)
}

// Set sets the depth at column x, row y.
func (dm *DepthMap) Set(x, y int, val float64) {
	dm.data[y*dm.width+x] = val
}

// Contains reports whether (x, y) is inside the map.
func (dm *DepthMap) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// Clone returns an independent deep copy.
func (dm *DepthMap) Clone() *DepthMap {
	out := &DepthMap{width: dm.width, height: dm.height, data: make([]float64, len(dm.data))}
	copy(out.data, dm.data)
	return out
}

// SameSize reports whether dm and other have identical dimensions.
func (dm *DepthMap) SameSize(other *DepthMap) bool {
	return dm.width == other.width && dm.height == other.height
}

// ValidCount returns the number of pixels with a reading.
func (dm *DepthMap) ValidCount() int {
	n := 0
	for _, v := range dm.data {
		if v > 0 {
			n++
		}
	}
	return n
}

// MinMax returns the smallest and largest valid depth. Both are 0 when the
// map has no valid pixel.
func (dm *DepthMap) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range dm.data {
		if v <= 0 {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// Map returns a new depth map whose pixels are fn applied to the pixels of dm.
func (dm *DepthMap) Map(fn func(x, y int, v float64) float64) *DepthMap {
	out := NewEmptyDepthMap(dm.width, dm.height)
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			i := y*dm.width + x
			out.data[i] = fn(x, y, dm.data[i])
		}
	}
	return out
}
