package engine

import (
	"strings"
	"testing"

	"github.com/chazu/anamorph/pkg/design"
	"github.com/chazu/anamorph/pkg/reduce"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(anamorph :font "Arial.ttf")`,
			expect: `(anamorph "__kw_font" "Arial.ttf")`,
		},
		{
			name:   "multiple keywords",
			input:  `(reduce :clearance 0.01 :image-size 800)`,
			expect: `(reduce "__kw_clearance" 0.01 "__kw_image-size" 800)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def front-text "CAT")`,
			expect: `(def front_text "CAT")`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:difference-threshold`,
			expect: `"__kw_difference-threshold"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// mustEvaluate runs source and fails the test on any error.
func mustEvaluate(t *testing.T, source string) *design.Design {
	t.Helper()
	d, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if d == nil {
		t.Fatal("expected non-nil design")
	}
	return d
}

// ---------------------------------------------------------------------------
// anamorph
// ---------------------------------------------------------------------------

func TestAnamorphKeywords(t *testing.T) {
	d := mustEvaluate(t, `
;; the classic
(anamorph :front "CAT" :left "DOG" :right "EMU"
          :font "fonts/Arial.ttf" :height 2.5)
`)
	want := design.Design{Front: "CAT", Left: "DOG", Right: "EMU", Font: "fonts/Arial.ttf", Height: 2.5}
	if *d != want {
		t.Errorf("design = %+v, want %+v", *d, want)
	}
}

func TestAnamorphPositional(t *testing.T) {
	d := mustEvaluate(t, `(anamorph "CAT" "DOG" "EMU" :font "a.ttf" :height 3)`)
	if d.Front != "CAT" || d.Left != "DOG" || d.Right != "EMU" {
		t.Errorf("texts = %q %q %q", d.Front, d.Left, d.Right)
	}
	if d.Height != 3 {
		t.Errorf("height = %v, want 3 from an integer literal", d.Height)
	}
}

func TestAnamorphVariables(t *testing.T) {
	d := mustEvaluate(t, `
(def front-text "OWL")
(def size (* 2 1.5))
(anamorph :front front-text :left "BAT" :right "ELK" :font "a.ttf" :height size)
`)
	if d.Front != "OWL" {
		t.Errorf("front = %q, want OWL", d.Front)
	}
	if d.Height != 3 {
		t.Errorf("height = %v, want 3", d.Height)
	}
}

func TestAnamorphWithoutReduce(t *testing.T) {
	d := mustEvaluate(t, `(anamorph "CAT" "DOG" "EMU" :font "a.ttf")`)
	if d.Reduction != nil {
		t.Errorf("reduction = %+v, want nil", d.Reduction)
	}
	if errs := design.Validate(d); len(errs) != 0 {
		t.Errorf("Validate() = %v, want none", errs)
	}
}

func TestAnamorphErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"called twice", `(anamorph "A" "B" "C" :font "a.ttf") (anamorph "D" "E" "F" :font "a.ttf")`, "only be called once"},
		{"too many texts", `(anamorph "A" "B" "C" "D")`, "at most 3"},
		{"text not a string", `(anamorph 1 "B" "C")`, "text 1"},
		{"font not a string", `(anamorph "A" "B" "C" :font 12)`, "font"},
		{"zero height", `(anamorph "A" "B" "C" :height 0)`, "positive"},
		{"unknown keyword", `(anamorph "A" "B" "C" :colour "red")`, "unknown keyword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if d != nil {
				t.Errorf("expected nil design, got %+v", d)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// reduce
// ---------------------------------------------------------------------------

func TestReduceDefaults(t *testing.T) {
	d := mustEvaluate(t, `(anamorph "CAT" "DOG" "EMU" :font "a.ttf") (reduce)`)
	if d.Reduction == nil {
		t.Fatal("expected a reduction")
	}
	want := design.Reduction{
		Clearance:           reduce.DefaultClearance,
		ImageSize:           reduce.DefaultImageSize,
		DifferenceThreshold: reduce.DefaultDifferenceThreshold,
	}
	if *d.Reduction != want {
		t.Errorf("reduction = %+v, want %+v", *d.Reduction, want)
	}
}

func TestReduceSettings(t *testing.T) {
	d := mustEvaluate(t, `
(reduce :clearance 0.5 :image-size 400 :difference-threshold 0.002)
(anamorph "CAT" "DOG" "EMU" :font "a.ttf")
`)
	want := design.Reduction{Clearance: 0.5, ImageSize: 400, DifferenceThreshold: 0.002}
	if d.Reduction == nil || *d.Reduction != want {
		t.Errorf("reduction = %+v, want %+v", d.Reduction, want)
	}
}

func TestReduceErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"positional", `(reduce 0.01)`, "keyword arguments only"},
		{"fractional image size", `(reduce :image-size 10.5)`, "whole number"},
		{"string clearance", `(reduce :clearance "lots")`, "clearance"},
		{"unknown keyword", `(reduce :passes 3)`, "unknown keyword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("fatal error: %v", err)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Plain arithmetic still works (regression)
// ---------------------------------------------------------------------------

func TestArithmeticStillWorks(t *testing.T) {
	d := mustEvaluate(t, "(+ 1 2)")
	if d.Front != "" {
		t.Errorf("expected empty design, got %+v", d)
	}
}
