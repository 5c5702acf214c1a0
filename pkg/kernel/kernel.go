// Package kernel defines the abstract geometry kernel interface.
// Implementations provide solid modeling and boolean operations behind
// this interface, so the text solids can be built without the rest of the
// system knowing which CAD library does the work.
package kernel

import (
	"errors"

	"github.com/chazu/anamorph/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEmptyText is returned when a text prism is requested for an empty
// string.
var ErrEmptyText = errors.New("kernel: text is empty")

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() r3.Box
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid

	// TextPrism renders text with the TrueType font at fontPath in the XY
	// plane, glyph height height, centered on the origin, and extrudes it
	// depth along Z, centered on the text plane.
	TextPrism(text, fontPath string, height, depth float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees, applied X, Y, Z

	// Mesh output
	ToMesh(s Solid) (*mesh.Mesh, error)
}
