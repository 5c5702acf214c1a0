package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/anamorph/pkg/design"
	"github.com/chazu/anamorph/pkg/reduce"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites recipe source before it reaches zygomys:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords never
//     collide with user variables.
//  2. kebab-case identifiers become snake_case (image-size -> image_size);
//     zygomys reads a bare hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied through untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// zygomys only understands // comments.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is part of a name, not a minus.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}


// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW returns the keyword name of a preprocessed keyword argument.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs is a builtin's argument list split into keywords and positionals.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a whole number. Floats are accepted when integral.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected whole number, got %v", v.Val)
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// sexpDesign is what (anamorph ...) returns to the script.
type sexpDesign struct {
	d *design.Design
}

func (s *sexpDesign) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(anamorph %q %q %q)", s.d.Front, s.d.Left, s.d.Right)
}
func (s *sexpDesign) Type() *zygo.RegisteredType { return nil }

// recipe collects what the builtins declare during one evaluation.
type recipe struct {
	design    *design.Design
	reduction *design.Reduction
}

// result merges the declarations into one design. A script that never
// calls anamorph yields an empty design.
func (r *recipe) result() *design.Design {
	d := &design.Design{}
	if r.design != nil {
		*d = *r.design
	}
	if r.reduction != nil {
		red := *r.reduction
		d.Reduction = &red
	}
	return d
}

// registerBuiltins installs the recipe builtins into env. Source must be
// run through preprocessSource first so keywords arrive as strings.
func registerBuiltins(env *zygo.Zlisp, r *recipe) {

	// (anamorph :front "CAT" :left "DOG" :right "EMU" :font "f.ttf" :height 1)
	// The three texts may also be given positionally in view order.
	env.AddFunction("anamorph", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if r.design != nil {
			return zygo.SexpNull, fmt.Errorf("anamorph: may only be called once")
		}
		pa := parseArgs(args)
		if len(pa.positional) > 3 {
			return zygo.SexpNull, fmt.Errorf("anamorph: expected at most 3 texts, got %d", len(pa.positional))
		}
		d := &design.Design{}
		texts := []*string{&d.Front, &d.Left, &d.Right}
		for i, arg := range pa.positional {
			s, err := toString(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("anamorph: text %d: %w", i+1, err)
			}
			*texts[i] = s
		}
		for i, key := range []string{"front", "left", "right", "font"} {
			v, ok := pa.kw[key]
			if !ok {
				continue
			}
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("anamorph: %s: %w", key, err)
			}
			if i < len(texts) {
				*texts[i] = s
			} else {
				d.Font = s
			}
		}
		if v, ok := pa.kw["height"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("anamorph: height: %w", err)
			}
			if f <= 0 {
				return zygo.SexpNull, fmt.Errorf("anamorph: height must be positive, got %v", f)
			}
			d.Height = f
		}
		for key := range pa.kw {
			switch key {
			case "front", "left", "right", "font", "height":
			default:
				return zygo.SexpNull, fmt.Errorf("anamorph: unknown keyword :%s", key)
			}
		}

		r.design = d
		return &sexpDesign{d: d}, nil
	})

	// (reduce :clearance 0.01 :image-size 800 :difference-threshold 0.001)
	// Omitted settings take the reducer defaults.
	env.AddFunction("reduce", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("reduce: takes keyword arguments only")
		}
		red := design.Reduction{
			Clearance:           reduce.DefaultClearance,
			ImageSize:           reduce.DefaultImageSize,
			DifferenceThreshold: reduce.DefaultDifferenceThreshold,
		}
		for key, v := range pa.kw {
			var err error
			switch key {
			case "clearance":
				red.Clearance, err = toFloat64(v)
			case "image-size":
				red.ImageSize, err = toInt(v)
			case "difference-threshold":
				red.DifferenceThreshold, err = toFloat64(v)
			default:
				err = fmt.Errorf("unknown keyword")
			}
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("reduce: :%s: %w", key, err)
			}
		}
		r.reduction = &red
		return zygo.SexpNull, nil
	})
}
