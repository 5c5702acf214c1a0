// Package mesh defines the indexed triangle mesh shared by the kernel,
// the silhouette renderer and the component reducer.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEmpty is returned by operations that need at least one triangle.
var ErrEmpty = errors.New("mesh: no triangles")

// Face is a triangle given as three indices into Mesh.Vertices.
type Face [3]int

// Mesh is an indexed triangle surface. It is not required to be closed
// or manifold.
type Mesh struct {
	Vertices []r3.Vec `json:"vertices"`
	Faces    []Face   `json:"faces"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Faces) == 0
}

// Validate checks that every face index refers to an existing vertex and
// that all coordinates are finite.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("mesh: face %d references vertex %d, have %d vertices", i, idx, n)
			}
		}
	}
	for i, v := range m.Vertices {
		if !finite(v) {
			return fmt.Errorf("mesh: vertex %d is not finite: %v", i, v)
		}
	}
	return nil
}

func finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Vertices: make([]r3.Vec, len(m.Vertices)),
		Faces:    make([]Face, len(m.Faces)),
	}
	copy(out.Vertices, m.Vertices)
	copy(out.Faces, m.Faces)
	return out
}

// Bounds returns the axis-aligned bounding box of all vertices.
// The zero box is returned for a mesh without vertices.
func (m *Mesh) Bounds() r3.Box {
	if len(m.Vertices) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		b.Min.X = math.Min(b.Min.X, v.X)
		b.Min.Y = math.Min(b.Min.Y, v.Y)
		b.Min.Z = math.Min(b.Min.Z, v.Z)
		b.Max.X = math.Max(b.Max.X, v.X)
		b.Max.Y = math.Max(b.Max.Y, v.Y)
		b.Max.Z = math.Max(b.Max.Z, v.Z)
	}
	return b
}

// Centroid returns the center of the mesh's bounding box.
func (m *Mesh) Centroid() r3.Vec {
	b := m.Bounds()
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// MinZ returns the lowest Z coordinate of any vertex.
func (m *Mesh) MinZ() float64 {
	return m.Bounds().Min.Z
}

// Translate returns a copy of the mesh moved by offset.
func (m *Mesh) Translate(offset r3.Vec) *Mesh {
	out := m.Clone()
	for i := range out.Vertices {
		out.Vertices[i] = r3.Add(out.Vertices[i], offset)
	}
	return out
}

// Merge concatenates meshes into a new mesh, re-indexing faces. Inputs
// are not modified. Merging zero meshes returns ErrEmpty; merging a single
// mesh returns a copy of it.
func Merge(meshes ...*Mesh) (*Mesh, error) {
	if len(meshes) == 0 {
		return nil, ErrEmpty
	}
	if len(meshes) == 1 {
		return meshes[0].Clone(), nil
	}

	var nv, nf int
	for _, m := range meshes {
		nv += len(m.Vertices)
		nf += len(m.Faces)
	}
	out := &Mesh{
		Vertices: make([]r3.Vec, 0, nv),
		Faces:    make([]Face, 0, nf),
	}
	for _, m := range meshes {
		base := len(out.Vertices)
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, f := range m.Faces {
			out.Faces = append(out.Faces, Face{f[0] + base, f[1] + base, f[2] + base})
		}
	}
	return out, nil
}

// Subset builds a standalone mesh from the given faces of m. Only the
// vertices referenced by those faces are kept, in order of first use.
func (m *Mesh) Subset(faces []int) *Mesh {
	remap := make(map[int]int, len(faces)*3)
	out := &Mesh{Faces: make([]Face, 0, len(faces))}
	for _, fi := range faces {
		var nf Face
		for k, vi := range m.Faces[fi] {
			ni, ok := remap[vi]
			if !ok {
				ni = len(out.Vertices)
				remap[vi] = ni
				out.Vertices = append(out.Vertices, m.Vertices[vi])
			}
			nf[k] = ni
		}
		out.Faces = append(out.Faces, nf)
	}
	return out
}

// MergeTolerance is the grid spacing WeldWithin uses for meshes whose
// shared corners were computed independently, such as marching cubes
// output.
const MergeTolerance = 1e-8

// Weld merges vertices with bit-identical coordinates and drops vertices
// that no face references. Face order is preserved.
func (m *Mesh) Weld() *Mesh {
	return m.WeldWithin(0)
}

// WeldWithin is Weld with coordinates snapped to a grid of spacing tol
// before comparison, so corners that differ by rounding noise merge. The
// first vertex seen in each cell keeps its exact position. A tol of zero
// or less compares exactly.
func (m *Mesh) WeldWithin(tol float64) *Mesh {
	key := func(v r3.Vec) r3.Vec { return v }
	if tol > 0 {
		key = func(v r3.Vec) r3.Vec {
			return r3.Vec{
				X: math.Round(v.X / tol),
				Y: math.Round(v.Y / tol),
				Z: math.Round(v.Z / tol),
			}
		}
	}

	index := make(map[r3.Vec]int, len(m.Vertices))
	out := &Mesh{Faces: make([]Face, 0, len(m.Faces))}
	for _, f := range m.Faces {
		var nf Face
		for k, vi := range f {
			v := m.Vertices[vi]
			kv := key(v)
			ni, ok := index[kv]
			if !ok {
				ni = len(out.Vertices)
				index[kv] = ni
				out.Vertices = append(out.Vertices, v)
			}
			nf[k] = ni
		}
		out.Faces = append(out.Faces, nf)
	}
	return out
}

// Triangle returns the three corner positions of face i.
func (m *Mesh) Triangle(i int) [3]r3.Vec {
	f := m.Faces[i]
	return [3]r3.Vec{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
}
