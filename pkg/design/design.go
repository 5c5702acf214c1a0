// Package design describes an anamorphic text object: three strings, the
// font they are set in, and the optional reduction pass to run on the
// resulting mesh.
package design

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultHeight is the glyph height used when a design does not set one.
const DefaultHeight = 1.0

// Design is the input to mesh generation.
type Design struct {
	Front string `json:"front"`
	Left  string `json:"left"`
	Right string `json:"right"`
	Font  string `json:"font"`

	// Height is the glyph height. Zero means DefaultHeight.
	Height float64 `json:"height,omitempty"`

	// Reduction, when set, asks for the reducer to run after generation.
	Reduction *Reduction `json:"reduction,omitempty"`
}

// Reduction carries reducer settings chosen by a design.
type Reduction struct {
	Clearance           float64 `json:"clearance"`
	ImageSize           int     `json:"image_size"`
	DifferenceThreshold float64 `json:"difference_threshold"`
}

// Texts returns the strings in view order: front, left, right.
func (d *Design) Texts() [3]string {
	return [3]string{d.Front, d.Left, d.Right}
}

// GlyphHeight returns Height or the default.
func (d *Design) GlyphHeight() float64 {
	if d.Height > 0 {
		return d.Height
	}
	return DefaultHeight
}

// MaxLen returns the length in characters of the longest string, and at
// least one.
func (d *Design) MaxLen() int {
	n := 1
	for _, s := range d.Texts() {
		if l := utf8.RuneCountInString(s); l > n {
			n = l
		}
	}
	return n
}

// Depth returns the extrusion depth of each text prism. Each prism must
// be deep enough to pass through the whole of the other two.
func (d *Design) Depth() float64 {
	return 2 * float64(d.MaxLen()) * d.GlyphHeight()
}

// Severity says whether a finding blocks generation.
type Severity int

const (
	SeverityError   Severity = iota // blocks generation
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Field    string
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Field, e.Message)
}

var fontExtensions = map[string]bool{".ttf": true, ".otf": true, ".ttc": true}

// Validate checks the design and returns its findings. An empty slice
// means the design is usable.
func Validate(d *Design) []ValidationError {
	var errs []ValidationError
	add := func(field string, sev Severity, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: sev})
	}

	for i, name := range []string{"front", "left", "right"} {
		if strings.TrimSpace(d.Texts()[i]) == "" {
			add(name, SeverityError, "text is empty")
		}
	}
	if d.Font == "" {
		add("font", SeverityError, "a TrueType font path is required")
	} else if ext := strings.ToLower(filepath.Ext(d.Font)); !fontExtensions[ext] {
		add("font", SeverityWarning, "%q does not look like a TrueType font", d.Font)
	}
	if d.Height < 0 {
		add("height", SeverityError, "must not be negative, got %v", d.Height)
	}

	if r := d.Reduction; r != nil {
		if r.Clearance < 0 {
			add("reduction.clearance", SeverityError, "must not be negative, got %v", r.Clearance)
		}
		if r.ImageSize <= 0 {
			add("reduction.image_size", SeverityError, "must be positive, got %d", r.ImageSize)
		}
		if r.DifferenceThreshold < 0 || r.DifferenceThreshold > 1 {
			add("reduction.difference_threshold", SeverityError, "must be in [0, 1], got %v", r.DifferenceThreshold)
		}
	}
	return errs
}

// HasErrors reports whether any finding is blocking.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
