package design

import (
	"strings"
	"testing"
)

func TestMaxLenAndDepth(t *testing.T) {
	tests := []struct {
		name   string
		d      Design
		maxLen int
		depth  float64
	}{
		{"equal", Design{Front: "CAT", Left: "DOG", Right: "EMU"}, 3, 6},
		{"longest wins", Design{Front: "A", Left: "HELLO", Right: "BC"}, 5, 10},
		{"runes not bytes", Design{Front: "ÄÖÜ", Left: "A", Right: "B"}, 3, 6},
		{"all empty", Design{}, 1, 2},
		{"custom height", Design{Front: "AB", Left: "C", Right: "D", Height: 2.5}, 2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.MaxLen(); got != tt.maxLen {
				t.Errorf("MaxLen() = %d, want %d", got, tt.maxLen)
			}
			if got := tt.d.Depth(); got != tt.depth {
				t.Errorf("Depth() = %v, want %v", got, tt.depth)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	good := Design{Front: "CAT", Left: "DOG", Right: "EMU", Font: "fonts/Arial.TTF"}
	if errs := Validate(&good); len(errs) != 0 {
		t.Fatalf("Validate(good) = %v, want none", errs)
	}

	tests := []struct {
		name      string
		mutate    func(*Design)
		field     string
		severity  Severity
		hasErrors bool
	}{
		{"blank front", func(d *Design) { d.Front = "  " }, "front", SeverityError, true},
		{"missing font", func(d *Design) { d.Font = "" }, "font", SeverityError, true},
		{"odd font", func(d *Design) { d.Font = "Arial" }, "font", SeverityWarning, false},
		{"negative height", func(d *Design) { d.Height = -1 }, "height", SeverityError, true},
		{"bad image size", func(d *Design) {
			d.Reduction = &Reduction{Clearance: 0.01, ImageSize: 0, DifferenceThreshold: 0.001}
		}, "reduction.image_size", SeverityError, true},
		{"bad threshold", func(d *Design) {
			d.Reduction = &Reduction{Clearance: 0.01, ImageSize: 800, DifferenceThreshold: 1.5}
		}, "reduction.difference_threshold", SeverityError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := good
			tt.mutate(&d)
			errs := Validate(&d)
			if len(errs) != 1 {
				t.Fatalf("Validate() = %v, want exactly one finding", errs)
			}
			if errs[0].Field != tt.field || errs[0].Severity != tt.severity {
				t.Errorf("finding = %+v, want field %q severity %s", errs[0], tt.field, tt.severity)
			}
			if HasErrors(errs) != tt.hasErrors {
				t.Errorf("HasErrors() = %v, want %v", !tt.hasErrors, tt.hasErrors)
			}
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "font", Message: "a TrueType font path is required", Severity: SeverityError}
	if got := e.Error(); !strings.HasPrefix(got, "[error] font:") {
		t.Errorf("Error() = %q", got)
	}
	if got := Severity(9).String(); got != "Severity(9)" {
		t.Errorf("String() = %q", got)
	}
}
