package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/anamorph/pkg/logging"
	"github.com/chazu/anamorph/pkg/mesh"
	"github.com/gogpu/gg"
)

// SavePreviews writes an anti-aliased PNG of each view into dir, named
// front.png, left.png and right.png. It uses the same framing as Raster,
// so previews line up with the masks the reducer compares. It returns the
// written paths in view order.
func (r *Renderer) SavePreviews(m *mesh.Mesh, dir string, size int) ([]string, error) {
	if err := checkInput(m, size); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}

	var paths []string
	for _, v := range Views() {
		path := filepath.Join(dir, v.FileName())
		if err := savePreview(m, v, size, path); err != nil {
			return paths, &Error{View: v.Name(), Err: err}
		}
		logging.Logger().Debug("saved preview", "view", v.Name(), "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

func savePreview(m *mesh.Mesh, v View, size int, path string) error {
	f := newFrame(m, v.Direction(), size)

	dc := gg.NewContext(size, size)
	defer dc.Close()
	dc.ClearWithColor(gg.White)
	dc.SetRGB(0, 0, 0)
	dc.SetFillRule(gg.FillRuleNonZero)

	// Common winding plus non-zero fill gives the union of all triangles.
	for _, q := range f.triangles(m) {
		dc.MoveTo(q[0][0], q[0][1])
		dc.LineTo(q[1][0], q[1][1])
		dc.LineTo(q[2][0], q[2][1])
		dc.ClosePath()
	}
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	return dc.SavePNG(path)
}
