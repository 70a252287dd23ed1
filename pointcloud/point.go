// Package pointcloud holds object model points: normalization from the
// accepted input shapes, the object diameter and a nearest neighbor index.
package pointcloud

import (
	"github.com/golang/geo/r3"
)

// NewVector returns the point (x, y, z).
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// Vectors is a named list of points that Normalize accepts like []r3.Vector.
type Vectors []r3.Vector
