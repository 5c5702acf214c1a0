package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/chazu/anamorph/pkg/mesh"
	"golang.org/x/image/vector"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// BrightnessThreshold is the mean-RGB value below which a pixel counts
	// as covered.
	BrightnessThreshold = 250.0

	// MarginFraction is the padding added on each side of the projected
	// bounds, relative to the span on that axis.
	MarginFraction = 0.05

	// ZeroSpanMargin is the padding used on an axis where the projection
	// has no extent.
	ZeroSpanMargin = 1.0

	// minPixelArea drops triangles that project to (nearly) a line.
	minPixelArea = 1e-9
)

var (
	// ErrEmptyMesh is returned when there is nothing to draw.
	ErrEmptyMesh = errors.New("mesh has no triangles")

	// ErrInvalidSize is returned for a non-positive raster size.
	ErrInvalidSize = errors.New("raster size must be positive")
)

// Error reports a failure rendering one view.
type Error struct {
	View string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render: view %s: %v", e.View, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ViewSet holds one occupancy mask per view, indexed by View.
type ViewSet [NumViews]*Occupancy

// Renderer produces silhouette rasters. The zero value is ready to use.
type Renderer struct {
	// Sequential renders the views of a ViewSet one after another instead
	// of concurrently.
	Sequential bool
}

// New returns a Renderer with default settings.
func New() *Renderer {
	return &Renderer{}
}

// frame maps mesh coordinates to pixel coordinates for one direction.
type frame struct {
	right, up r3.Vec
	loU, hiV  float64
	scale     float64
	offX      float64
	offY      float64
}

func newFrame(m *mesh.Mesh, dir r3.Vec, size int) frame {
	right, up := Basis(dir)

	minU, maxU := math.Inf(1), math.Inf(-1)
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, p := range m.Vertices {
		u, v := r3.Dot(p, right), r3.Dot(p, up)
		minU, maxU = math.Min(minU, u), math.Max(maxU, u)
		minV, maxV = math.Min(minV, v), math.Max(maxV, v)
	}
	marginU := margin(maxU - minU)
	marginV := margin(maxV - minV)
	loU, hiU := minU-marginU, maxU+marginU
	loV, hiV := minV-marginV, maxV+marginV

	// Equal aspect: the larger extent fills the raster, the other axis is
	// centered.
	wU, wV := hiU-loU, hiV-loV
	extent := math.Max(wU, wV)
	scale := float64(size) / extent
	return frame{
		right: right,
		up:    up,
		loU:   loU,
		hiV:   hiV,
		scale: scale,
		offX:  (float64(size) - wU*scale) / 2,
		offY:  (float64(size) - wV*scale) / 2,
	}
}

func margin(span float64) float64 {
	m := span * MarginFraction
	if m == 0 {
		return ZeroSpanMargin
	}
	return m
}

// project returns the pixel position of p; y grows downwards.
func (f frame) project(p r3.Vec) (x, y float64) {
	u, v := r3.Dot(p, f.right), r3.Dot(p, f.up)
	return f.offX + (u-f.loU)*f.scale, f.offY + (f.hiV-v)*f.scale
}

// triangles returns the projected faces of m with a common winding, so
// overlapping triangles add coverage instead of cancelling. Degenerate
// projections are skipped.
func (f frame) triangles(m *mesh.Mesh) [][3][2]float64 {
	out := make([][3][2]float64, 0, len(m.Faces))
	for i := range m.Faces {
		t := m.Triangle(i)
		var q [3][2]float64
		for k := range t {
			q[k][0], q[k][1] = f.project(t[k])
		}
		area := (q[1][0]-q[0][0])*(q[2][1]-q[0][1]) - (q[2][0]-q[0][0])*(q[1][1]-q[0][1])
		if math.Abs(area) < minPixelArea {
			continue
		}
		if area < 0 {
			q[1], q[2] = q[2], q[1]
		}
		out = append(out, q)
	}
	return out
}

func checkInput(m *mesh.Mesh, size int) error {
	if size <= 0 {
		return ErrInvalidSize
	}
	if m.IsEmpty() {
		return ErrEmptyMesh
	}
	return m.Validate()
}

// Raster draws the silhouette of m seen along dir into a size×size image:
// white background, black ink. The result is deterministic for a given
// mesh, direction and size.
func (r *Renderer) Raster(m *mesh.Mesh, dir r3.Vec, size int) (*image.RGBA, error) {
	if err := checkInput(m, size); err != nil {
		return nil, err
	}
	if r3.Norm(dir) == 0 {
		return nil, errors.New("view direction is zero")
	}
	f := newFrame(m, dir, size)

	z := vector.NewRasterizer(size, size)
	for _, q := range f.triangles(m) {
		z.MoveTo(float32(q[0][0]), float32(q[0][1]))
		z.LineTo(float32(q[1][0]), float32(q[1][1]))
		z.LineTo(float32(q[2][0]), float32(q[2][1]))
		z.ClosePath()
	}

	bounds := image.Rect(0, 0, size, size)
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.White, image.Point{}, draw.Src)
	z.Draw(dst, bounds, image.Black, image.Point{})
	return dst, nil
}

// Render returns the occupancy mask of m for view v.
func (r *Renderer) Render(m *mesh.Mesh, v View, size int) (*Occupancy, error) {
	img, err := r.Raster(m, v.Direction(), size)
	if err != nil {
		return nil, &Error{View: v.Name(), Err: err}
	}
	return Threshold(img), nil
}

// RenderViews renders all three views of m. The views are independent, so
// unless Sequential is set they are rasterized concurrently.
func (r *Renderer) RenderViews(m *mesh.Mesh, size int) (ViewSet, error) {
	var set ViewSet
	if r.Sequential {
		for _, v := range Views() {
			occ, err := r.Render(m, v, size)
			if err != nil {
				return ViewSet{}, err
			}
			set[v] = occ
		}
		return set, nil
	}

	var g errgroup.Group
	for _, v := range Views() {
		g.Go(func() error {
			occ, err := r.Render(m, v, size)
			if err != nil {
				return err
			}
			set[v] = occ
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ViewSet{}, err
	}
	return set, nil
}
