package spatialmath

import (
	"fmt"
	"io"
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Mesh is an indexed triangle mesh in its model frame: a vertex buffer and a
// list of faces indexing into it.
type Mesh struct {
	vertices []r3.Vector
	faces    [][3]int
	label    string
}

// NewMesh validates and returns a mesh. Vertices must be finite and every face
// index must refer to a vertex. Faces may be empty for a point-only model.
func NewMesh(vertices []r3.Vector, faces [][3]int, label string) (*Mesh, error) {
	if len(vertices) == 0 {
		return nil, errors.Wrap(ErrInvalidMesh, "mesh has no vertices")
	}
	for i, v := range vertices {
		if !isFiniteVector(v) {
			return nil, errors.Wrapf(ErrInvalidMesh, "vertex %d is not finite", i)
		}
	}
	for i, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(vertices) {
				return nil, errors.Wrapf(ErrInvalidMesh, "face %d references vertex %d of %d", i, idx, len(vertices))
			}
		}
	}
	return &Mesh{vertices: vertices, faces: faces, label: label}, nil
}

// Label returns the name of the mesh.
func (m *Mesh) Label() string {
	return m.label
}

// Vertices returns the vertex buffer. Callers must not modify it.
func (m *Mesh) Vertices() []r3.Vector {
	return m.vertices
}

// Faces returns the vertex indices of every triangle.
func (m *Mesh) Faces() [][3]int {
	return m.faces
}

// Triangles returns the faces as triangles in the model frame.
func (m *Mesh) Triangles() []*Triangle {
	tris := make([]*Triangle, 0, len(m.faces))
	for _, f := range m.faces {
		tris = append(tris, NewTriangle(m.vertices[f[0]], m.vertices[f[1]], m.vertices[f[2]]))
	}
	return tris
}

// Scale returns a copy of the mesh with every vertex multiplied by factor. BOP
// models are stored in millimeters, so loading them in meters uses 0.001.
func (m *Mesh) Scale(factor float64) *Mesh {
	scaled := make([]r3.Vector, len(m.vertices))
	for i, v := range m.vertices {
		scaled[i] = v.Mul(factor)
	}
	return &Mesh{vertices: scaled, faces: m.faces, label: m.label}
}

// NewMeshFromPLYFile loads an ASCII PLY file.
func NewMeshFromPLYFile(path string) (*Mesh, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return NewMeshFromPLY(f, path)
}

// NewMeshFromPLY reads an ASCII PLY stream. Faces with more than three
// vertices are fanned into triangles.
func NewMeshFromPLY(r io.Reader, label string) (mesh *Mesh, err error) {
	// the ply reader panics on malformed input
	defer func() {
		if thePanic := recover(); thePanic != nil {
			mesh = nil
			err = errors.Wrapf(ErrInvalidMesh, "could not parse ply: %v", thePanic)
		}
	}()
	ply := goply.New(r)

	plyVertices := ply.Elements("vertex")
	vertices := make([]r3.Vector, 0, len(plyVertices))
	for i, v := range plyVertices {
		x, errX := plyFloat(v["x"])
		y, errY := plyFloat(v["y"])
		z, errZ := plyFloat(v["z"])
		if errX != nil || errY != nil || errZ != nil {
			return nil, errors.Wrapf(ErrInvalidMesh, "vertex %d is missing a coordinate", i)
		}
		vertices = append(vertices, r3.Vector{X: x, Y: y, Z: z})
	}

	var faces [][3]int
	for i, f := range ply.Elements("face") {
		raw, ok := f["vertex_indices"]
		if !ok {
			raw = f["vertex_index"]
		}
		list, ok := raw.([]interface{})
		if !ok || len(list) < 3 {
			return nil, errors.Wrapf(ErrInvalidMesh, "face %d has no vertex index list", i)
		}
		idx := make([]int, len(list))
		for j, e := range list {
			n, err := plyInt(e)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidMesh, "face %d: %v", i, err)
			}
			idx[j] = n
		}
		for j := 1; j+1 < len(idx); j++ {
			faces = append(faces, [3]int{idx[0], idx[j], idx[j+1]})
		}
	}
	return NewMesh(vertices, faces, label)
}

func plyFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case nil:
		return 0, errors.New("missing property")
	default:
		i, err := plyInt(n)
		return float64(i), err
	}
}

func plyInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int8:
		return int(n), nil
	case uint8:
		return int(n), nil
	case int16:
		return int(n), nil
	case uint16:
		return int(n), nil
	case int32:
		return int(n), nil
	case uint32:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected ply value type %T", v)
	}
}
