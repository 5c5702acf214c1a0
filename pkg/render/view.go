// Package render rasterizes orthographic silhouettes of a mesh from the
// three anamorphic viewpoints and compares them.
//
// Every triangle is filled flat regardless of its orientation; there is no
// depth, shading or backface culling. The raster is framed to the mesh's
// own projected bounds so only the silhouette's shape matters, not where
// the mesh sits in space.
package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// View identifies one of the three fixed orthographic viewpoints.
type View int

const (
	Front   View = iota // looking along -Y
	Left45              // front rotated +45° about Z
	Right45             // front rotated -45° about Z
)

// NumViews is the number of viewpoints.
const NumViews = 3

// BaseDirection is the front view direction; the other views rotate it
// about the vertical axis.
var BaseDirection = r3.Vec{X: 0, Y: -1, Z: 0}

type viewEntry struct {
	name  string
	file  string
	angle float64 // degrees about +Z
}

var viewTable = [NumViews]viewEntry{
	Front:   {name: "front", file: "front.png", angle: 0},
	Left45:  {name: "left45", file: "left.png", angle: 45},
	Right45: {name: "right45", file: "right.png", angle: -45},
}

// viewDirections is computed once so every render uses bit-identical
// directions.
var viewDirections = func() [NumViews]r3.Vec {
	var dirs [NumViews]r3.Vec
	for v, e := range viewTable {
		dirs[v] = rotateZ(BaseDirection, e.angle)
	}
	return dirs
}()

// Views returns the three viewpoints in canonical order.
func Views() []View {
	return []View{Front, Left45, Right45}
}

// Name returns the view identity, e.g. "left45".
func (v View) Name() string {
	if v < 0 || int(v) >= NumViews {
		return "unknown"
	}
	return viewTable[v].name
}

func (v View) String() string { return v.Name() }

// FileName returns the PNG name used when the view is saved to disk.
func (v View) FileName() string {
	if v < 0 || int(v) >= NumViews {
		return "unknown.png"
	}
	return viewTable[v].file
}

// Angle returns the rotation of the view about +Z in degrees.
func (v View) Angle() float64 {
	return viewTable[v].angle
}

// Direction returns the unit view direction.
func (v View) Direction() r3.Vec {
	return viewDirections[v]
}

func rotateZ(p r3.Vec, deg float64) r3.Vec {
	rad := deg * math.Pi / 180
	s, c := math.Sincos(rad)
	return r3.Unit(r3.Vec{
		X: c*p.X - s*p.Y,
		Y: s*p.X + c*p.Y,
		Z: p.Z,
	})
}

var (
	upHelper        = r3.Vec{X: 0, Y: 0, Z: -1}
	upHelperAligned = r3.Vec{X: 1, Y: 0, Z: 0}
)

// parallelTolerance decides when the view direction is parallel to the
// up helper.
const parallelTolerance = 1e-8

// Basis returns the in-plane axes for projecting along dir. The up helper
// is swapped for an alternate when dir is parallel to it, so every
// direction gets a well-defined basis.
func Basis(dir r3.Vec) (right, up r3.Vec) {
	dir = r3.Unit(dir)
	helper := upHelper
	if r3.Norm(r3.Cross(dir, helper)) < parallelTolerance {
		helper = upHelperAligned
	}
	right = r3.Unit(r3.Cross(dir, helper))
	up = r3.Unit(r3.Cross(dir, right))
	return right, up
}
