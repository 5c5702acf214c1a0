// Package tessellate turns a design into the anamorphic solid and its
// triangle mesh using a geometry kernel.
//
// Each string becomes a text prism standing in the XZ plane, extruded
// along Y, then turned about Z to face its view. The solid is the
// intersection of the three prisms, so each view sees only its own text.
package tessellate

import (
	"fmt"

	"github.com/chazu/anamorph/pkg/design"
	"github.com/chazu/anamorph/pkg/kernel"
	"github.com/chazu/anamorph/pkg/logging"
	"github.com/chazu/anamorph/pkg/mesh"
	"github.com/chazu/anamorph/pkg/render"
)

// uprightAngle turns the kernel's XY text plane into the XZ plane, with
// text up along +Z and the extrusion along Y.
const uprightAngle = 90.0

// Prism is one text prism placed for its view.
type Prism struct {
	View  render.View
	Text  string
	Solid kernel.Solid
}

// Prisms builds the three placed text prisms of d in view order.
func Prisms(d *design.Design, k kernel.Kernel) ([]Prism, error) {
	if d == nil {
		return nil, fmt.Errorf("tessellate: nil design")
	}
	if errs := design.Validate(d); design.HasErrors(errs) {
		return nil, fmt.Errorf("tessellate: invalid design: %v", errs[0])
	}

	height, depth := d.GlyphHeight(), d.Depth()
	texts := d.Texts()
	prisms := make([]Prism, 0, render.NumViews)
	for _, v := range render.Views() {
		text := texts[v]
		s, err := k.TextPrism(text, d.Font, height, depth)
		if err != nil {
			return nil, fmt.Errorf("tessellate: %s text %q: %w", v, text, err)
		}
		s = k.Rotate(s, uprightAngle, 0, v.Angle())
		prisms = append(prisms, Prism{View: v, Text: text, Solid: s})
	}
	return prisms, nil
}

// Solid returns the intersection of the three prisms of d.
func Solid(d *design.Design, k kernel.Kernel) (kernel.Solid, error) {
	prisms, err := Prisms(d, k)
	if err != nil {
		return nil, err
	}
	s := prisms[0].Solid
	for _, p := range prisms[1:] {
		s = k.Intersection(s, p.Solid)
	}
	return s, nil
}

// Tessellate builds the anamorphic solid for d and meshes it. The
// tessellator is read-only and never mutates the design.
func Tessellate(d *design.Design, k kernel.Kernel) (*mesh.Mesh, error) {
	s, err := Solid(d, k)
	if err != nil {
		return nil, err
	}
	m, err := k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed: %w", err)
	}
	logging.Logger().Debug("tessellated design",
		"front", d.Front, "left", d.Left, "right", d.Right,
		"vertices", m.VertexCount(), "triangles", m.TriangleCount())
	return m, nil
}
