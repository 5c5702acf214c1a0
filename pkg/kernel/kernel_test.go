package kernel

import (
	"testing"

	"github.com/chazu/anamorph/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	box r3.Box
}

func (s *stubSolid) BoundingBox() r3.Box { return s.box }

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. Text prisms are boxes as wide as the text is long.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) Solid {
	half := r3.Vec{X: x / 2, Y: y / 2, Z: z / 2}
	return &stubSolid{box: r3.Box{Min: r3.Scale(-1, half), Max: half}}
}

func (k *stubKernel) TextPrism(text, _ string, height, depth float64) (Solid, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	return k.Box(float64(len(text))*height, height, depth), nil
}

func (k *stubKernel) Union(a, _ Solid) Solid        { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }

func (k *stubKernel) Translate(s Solid, _, _, _ float64) Solid { return s }
func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid    { return s }

func (k *stubKernel) ToMesh(_ Solid) (*mesh.Mesh, error) {
	return &mesh.Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	bb := k.Box(10, 20, 30).BoundingBox()
	if bb.Min != (r3.Vec{X: -5, Y: -10, Z: -15}) {
		t.Errorf("Box min = %v, want [-5 -10 -15]", bb.Min)
	}
	if bb.Max != (r3.Vec{X: 5, Y: 10, Z: 15}) {
		t.Errorf("Box max = %v, want [5 10 15]", bb.Max)
	}
}

func TestStubKernelTextPrism(t *testing.T) {
	var k Kernel = &stubKernel{}
	if _, err := k.TextPrism("", "font.ttf", 1, 2); err != ErrEmptyText {
		t.Fatalf("TextPrism(\"\") error = %v, want ErrEmptyText", err)
	}
	s, err := k.TextPrism("CAT", "font.ttf", 1, 6)
	if err != nil {
		t.Fatalf("TextPrism failed: %v", err)
	}
	if w := s.BoundingBox().Size().X; w != 3 {
		t.Errorf("prism width = %v, want 3", w)
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	m, err := k.ToMesh(k.Box(1, 1, 1))
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m == nil {
		t.Fatal("ToMesh() returned nil mesh")
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}
