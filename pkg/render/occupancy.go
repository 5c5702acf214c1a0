package render

import (
	"errors"
	"image"
)

// Occupancy is a square boolean mask of covered pixels. It is immutable
// once built.
type Occupancy struct {
	size  int
	cells []bool
	count int
}

// NewOccupancyFromFunc builds a size×size mask where covered(x, y) decides
// each pixel.
func NewOccupancyFromFunc(size int, covered func(x, y int) bool) *Occupancy {
	o := &Occupancy{size: size, cells: make([]bool, size*size)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if covered(x, y) {
				o.cells[y*size+x] = true
				o.count++
			}
		}
	}
	return o
}

// Threshold turns a rendered image into a mask. A pixel is covered when the
// mean of its RGB channels, on a 0..255 scale, is below
// BrightnessThreshold. Alpha is ignored.
func Threshold(img image.Image) *Occupancy {
	b := img.Bounds()
	size := b.Dx()
	if b.Dy() > size {
		size = b.Dy()
	}
	return NewOccupancyFromFunc(size, func(x, y int) bool {
		if x >= b.Dx() || y >= b.Dy() {
			return false
		}
		r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		// RGBA returns 16-bit channels.
		mean := float64(r>>8+g>>8+bl>>8) / 3
		return mean < BrightnessThreshold
	})
}

// Size returns the side length of the mask.
func (o *Occupancy) Size() int { return o.size }

// Covered reports whether pixel (x, y) is covered. Out-of-range pixels are
// uncovered.
func (o *Occupancy) Covered(x, y int) bool {
	if x < 0 || y < 0 || x >= o.size || y >= o.size {
		return false
	}
	return o.cells[y*o.size+x]
}

// CoveredCount returns the number of covered pixels.
func (o *Occupancy) CoveredCount() int { return o.count }

// ErrSizeMismatch is returned when comparing masks of different sizes.
var ErrSizeMismatch = errors.New("occupancy masks differ in size")

// DifferenceRatio returns the fraction of pixels whose coverage differs
// between a and b.
func DifferenceRatio(a, b *Occupancy) (float64, error) {
	if a.size != b.size {
		return 0, ErrSizeMismatch
	}
	if a.size == 0 {
		return 0, nil
	}
	diff := 0
	for i := range a.cells {
		if a.cells[i] != b.cells[i] {
			diff++
		}
	}
	return float64(diff) / float64(len(a.cells)), nil
}
