package spatialmath

import (
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

const quadPLY = `ply
format ascii 1.0
comment a unit square split by the reader
element vertex 4
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
4 0 1 2 3
`

func TestNewMeshFromPLY(t *testing.T) {
	m, err := NewMeshFromPLY(strings.NewReader(quadPLY), "quad")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Label(), test.ShouldEqual, "quad")
	test.That(t, len(m.Vertices()), test.ShouldEqual, 4)
	test.That(t, m.Faces(), test.ShouldResemble, [][3]int{{0, 1, 2}, {0, 2, 3}})

	tris := m.Triangles()
	test.That(t, len(tris), test.ShouldEqual, 2)
	test.That(t, tris[0].Normal(), test.ShouldResemble, r3.Vector{Z: 1})
}

func TestNewMeshFromPLYMalformed(t *testing.T) {
	_, err := NewMeshFromPLY(strings.NewReader("not a ply\n"), "bad")
	test.That(t, err, test.ShouldWrap, ErrInvalidMesh)

	binary := strings.Replace(quadPLY, "format ascii 1.0", "format binary_little_endian 1.0", 1)
	_, err = NewMeshFromPLY(strings.NewReader(binary), "bad")
	test.That(t, err, test.ShouldWrap, ErrInvalidMesh)

	outOfRange := strings.Replace(quadPLY, "4 0 1 2 3", "4 0 1 2 9", 1)
	_, err = NewMeshFromPLY(strings.NewReader(outOfRange), "bad")
	test.That(t, err, test.ShouldWrap, ErrInvalidMesh)
}

func TestMeshScale(t *testing.T) {
	m, err := NewMesh([]r3.Vector{{X: 1000, Y: -2000, Z: 500}}, nil, "mm")
	test.That(t, err, test.ShouldBeNil)
	scaled := m.Scale(0.001)
	test.That(t, scaled.Vertices()[0].X, test.ShouldAlmostEqual, 1)
	test.That(t, scaled.Vertices()[0].Y, test.ShouldAlmostEqual, -2)
	test.That(t, scaled.Vertices()[0].Z, test.ShouldAlmostEqual, 0.5)
	test.That(t, m.Vertices()[0].X, test.ShouldEqual, 1000)

	_, err = NewMesh(nil, nil, "empty")
	test.That(t, err, test.ShouldWrap, ErrInvalidMesh)
}
