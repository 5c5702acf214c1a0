// Package meshtest provides mesh fixtures shared by package tests.
package meshtest

import (
	"math/rand"

	"github.com/chazu/anamorph/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// cuboidFaces triangulates the corners produced by Cuboid, two triangles
// per side.
var cuboidFaces = []mesh.Face{
	{0, 2, 1}, {0, 3, 2}, // bottom
	{4, 5, 6}, {4, 6, 7}, // top
	{0, 1, 5}, {0, 5, 4}, // y = min
	{3, 7, 6}, {3, 6, 2}, // y = max
	{0, 4, 7}, {0, 7, 3}, // x = min
	{1, 2, 6}, {1, 6, 5}, // x = max
}

// Cuboid returns a closed axis-aligned box spanning min to max.
func Cuboid(min, max r3.Vec) *mesh.Mesh {
	return &mesh.Mesh{
		Vertices: []r3.Vec{
			{X: min.X, Y: min.Y, Z: min.Z},
			{X: max.X, Y: min.Y, Z: min.Z},
			{X: max.X, Y: max.Y, Z: min.Z},
			{X: min.X, Y: max.Y, Z: min.Z},
			{X: min.X, Y: min.Y, Z: max.Z},
			{X: max.X, Y: min.Y, Z: max.Z},
			{X: max.X, Y: max.Y, Z: max.Z},
			{X: min.X, Y: max.Y, Z: max.Z},
		},
		Faces: append([]mesh.Face(nil), cuboidFaces...),
	}
}

// UnitCube returns a unit cube with its minimum corner at origin.
func UnitCube(origin r3.Vec) *mesh.Mesh {
	return Cuboid(origin, r3.Add(origin, r3.Vec{X: 1, Y: 1, Z: 1}))
}

// MustMerge merges meshes and panics on error.
func MustMerge(meshes ...*mesh.Mesh) *mesh.Mesh {
	m, err := mesh.Merge(meshes...)
	if err != nil {
		panic(err)
	}
	return m
}

// ShuffleFaces returns a copy of m with its faces in a pseudo-random order
// determined by seed. Geometry is unchanged.
func ShuffleFaces(m *mesh.Mesh, seed int64) *mesh.Mesh {
	out := m.Clone()
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out.Faces), func(i, j int) {
		out.Faces[i], out.Faces[j] = out.Faces[j], out.Faces[i]
	})
	return out
}
