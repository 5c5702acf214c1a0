package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/anamorph/pkg/config"
	"github.com/chazu/anamorph/pkg/design"
	"github.com/chazu/anamorph/pkg/engine"
	"github.com/chazu/anamorph/pkg/kernel"
	"github.com/chazu/anamorph/pkg/kernel/sdfx"
	"github.com/chazu/anamorph/pkg/logging"
	"github.com/chazu/anamorph/pkg/mesh"
	"github.com/chazu/anamorph/pkg/reduce"
	"github.com/chazu/anamorph/pkg/render"
	"github.com/chazu/anamorph/pkg/report"
	"github.com/chazu/anamorph/pkg/tessellate"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// DefaultGenerateOutput is where generate writes when -output is not set.
const DefaultGenerateOutput = "anamorphic_text.stl"

// errUsage marks errors caused by bad command lines.
var errUsage = errors.New("usage error")

// App is the anamorph command line. It holds the recipe engine and the
// factory used to build a geometry kernel for a mesh resolution.
type App struct {
	engine    *engine.Engine
	newKernel func(cells int) kernel.Kernel
	stdout    io.Writer
	stderr    io.Writer
}

// NewApp creates an App that writes results to stdout and diagnostics to
// stderr.
func NewApp(stdout, stderr io.Writer) *App {
	return &App{
		engine: engine.NewEngine(),
		newKernel: func(cells int) kernel.Kernel {
			return sdfx.New(sdfx.WithMeshCells(cells))
		},
		stdout: stdout,
		stderr: stderr,
	}
}

const usage = `Usage: anamorph <command> [flags] [args]

Commands:
  generate  build the anamorphic text mesh from three strings or a recipe
  render    save the three silhouette views of an STL as PNGs
  reduce    drop components that do not change any view

Run "anamorph <command> -h" for the flags of a command.
`

// Run executes one command line and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return exitUsage
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "generate":
		err = a.generate(ctx, rest)
	case "render":
		err = a.render(rest)
	case "reduce":
		err = a.reduce(ctx, rest)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(a.stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(a.stderr, "anamorph: unknown command %q\n\n%s", cmd, usage)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(a.stderr, "anamorph: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(a.stderr, "anamorph: %v\n", err)
		return exitError
	}
}

// newFlagSet returns a flag set that reports to the App's stderr and
// carries the shared -v flag.
func (a *App) newFlagSet(name, synopsis string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: anamorph %s %s\n\nFlags:\n", name, synopsis)
		fs.PrintDefaults()
	}
	verbose := fs.Bool("v", false, "enable debug logging")
	return fs, verbose
}

// parseFlags parses args allowing flags after positional arguments, and
// returns the positionals.
func parseFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// setupLogging installs a text logger on stderr for the library packages.
func (a *App) setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level})))
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

func (a *App) generate(ctx context.Context, args []string) error {
	fs, verbose := a.newFlagSet("generate", "[flags] FRONT LEFT RIGHT")
	font := fs.String("font", "", "path to a TrueType font file (.ttf); system font names are not resolved")
	output := fs.String("output", DefaultGenerateOutput, "path of the STL to write")
	script := fs.String("script", "", "recipe file declaring the design")
	height := fs.Float64("height", 0, "glyph height (default 1)")
	cells := fs.Int("mesh-cells", 0, "marching cubes cells along the longest side (default from config)")
	configPath := fs.String("config", "", "tuning config JSON file")
	runReduce := fs.Bool("reduce", false, "run the reducer on the generated mesh")

	positional, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	a.setupLogging(*verbose)

	d := &design.Design{}
	if *script != "" {
		if d, err = a.loadRecipe(*script); err != nil {
			return err
		}
	}
	switch len(positional) {
	case 0:
		if *script == "" {
			return fmt.Errorf("%w: generate needs three texts or -script", errUsage)
		}
	case 3:
		d.Front, d.Left, d.Right = positional[0], positional[1], positional[2]
	default:
		return fmt.Errorf("%w: generate takes exactly three texts, got %d", errUsage, len(positional))
	}
	if *font != "" {
		d.Font = *font
	}
	if *height != 0 {
		d.Height = *height
	}

	findings := design.Validate(d)
	for _, f := range findings {
		if f.Severity == design.SeverityWarning {
			fmt.Fprintf(a.stderr, "warning: %s: %s\n", f.Field, f.Message)
		}
	}
	if design.HasErrors(findings) {
		return fmt.Errorf("invalid design: %s", joinFindings(findings))
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		return err
	}
	if *cells > 0 {
		tuning.MeshCells = cells
	}
	if err := tuning.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	m, err := tessellate.Tessellate(d, a.newKernel(tuning.GetMeshCells()))
	if err != nil {
		return err
	}

	if *runReduce || d.Reduction != nil {
		opts := tuning.ReduceOptions()
		if r := d.Reduction; r != nil {
			opts.Clearance = r.Clearance
			opts.ImageSize = r.ImageSize
			opts.DifferenceThreshold = r.DifferenceThreshold
		}
		res, err := runReducer(ctx, m, opts)
		if err != nil {
			return err
		}
		if err := mesh.SaveSTL(*output, res.Mesh); err != nil {
			return err
		}
		a.printSummary(res, *output)
		return nil
	}

	if err := mesh.SaveSTL(*output, m); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Exported intersection mesh to %s\n", *output)
	return nil
}

// loadRecipe evaluates a recipe file into a design.
func (a *App) loadRecipe(path string) (*design.Design, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	d, evalErrs, err := a.engine.Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(a.stderr, "%s: %s\n", path, e)
		}
		return nil, fmt.Errorf("%s: %d evaluation error(s)", path, len(evalErrs))
	}
	return d, nil
}

func joinFindings(findings []design.ValidationError) string {
	var msgs []string
	for _, f := range findings {
		if f.Severity == design.SeverityError {
			msgs = append(msgs, f.Field+": "+f.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

// ---------------------------------------------------------------------------
// render
// ---------------------------------------------------------------------------

func (a *App) render(args []string) error {
	fs, verbose := a.newFlagSet("render", "[flags] MESH.stl")
	outputDir := fs.String("output-dir", "renders", "directory for the PNGs")
	size := fs.Int("size", reduce.DefaultImageSize, "square image size in pixels")

	positional, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: render takes one STL path", errUsage)
	}
	if *size <= 0 {
		return fmt.Errorf("%w: -size must be positive, got %d", errUsage, *size)
	}
	a.setupLogging(*verbose)

	m, err := mesh.LoadSTL(positional[0])
	if err != nil {
		return err
	}
	paths, err := render.New().SavePreviews(m, *outputDir, *size)
	if err != nil {
		return err
	}
	for i, v := range render.Views() {
		fmt.Fprintf(a.stdout, "Saved %s view to %s\n", v, paths[i])
	}
	return nil
}

// ---------------------------------------------------------------------------
// reduce
// ---------------------------------------------------------------------------

func (a *App) reduce(ctx context.Context, args []string) error {
	fs, verbose := a.newFlagSet("reduce", "[flags] MESH.stl")
	output := fs.String("output", "", "path of the reduced STL (default <input>_reduced<ext>)")
	clearance := fs.Float64("clearance", reduce.DefaultClearance, "height above the ground plane that still counts as grounded")
	imageSize := fs.Int("image-size", reduce.DefaultImageSize, "square comparison image size in pixels")
	threshold := fs.Float64("difference-threshold", reduce.DefaultDifferenceThreshold, "largest fraction of changed pixels per view for a removal")
	configPath := fs.String("config", "", "tuning config JSON file")
	partitioner := fs.String("partitioner", "", "connectivity implementation: gonum or unionfind")
	maxCandidates := fs.Int("max-candidates", 0, "abort after this many candidate renders (0 = unlimited)")
	reportPath := fs.String("report", "", "write a JSON run report to this path")
	tracePlot := fs.String("trace-plot", "", "plot the per-candidate difference ratios to this image")
	previews := fs.String("previews", "", "save PNG views of the reduced mesh into this directory")

	positional, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: reduce takes one STL path", errUsage)
	}
	input := positional[0]
	a.setupLogging(*verbose)

	tuning, err := loadTuning(*configPath)
	if err != nil {
		return err
	}
	// Flags given on the command line win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "clearance":
			tuning.Clearance = clearance
		case "image-size":
			tuning.ImageSize = imageSize
		case "difference-threshold":
			tuning.DifferenceThreshold = threshold
		case "partitioner":
			tuning.Partitioner = partitioner
		case "max-candidates":
			tuning.MaxCandidates = maxCandidates
		}
	})
	if err := tuning.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	opts := tuning.ReduceOptions()

	m, err := mesh.LoadSTL(input)
	if err != nil {
		return err
	}
	res, err := runReducer(ctx, m, opts)
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = DefaultReducedPath(input)
	}
	if err := mesh.SaveSTL(out, res.Mesh); err != nil {
		return err
	}

	if *reportPath != "" {
		if err := report.New(input, out, opts, m, res).Save(*reportPath); err != nil {
			return err
		}
	}
	if *tracePlot != "" {
		if err := report.SaveTracePlot(res.Steps, opts.DifferenceThreshold, *tracePlot); err != nil {
			return err
		}
	}
	if *previews != "" {
		if _, err := render.New().SavePreviews(res.Mesh, *previews, opts.ImageSize); err != nil {
			return err
		}
	}

	a.printSummary(res, out)
	return nil
}

// DefaultReducedPath returns <dir>/<stem>_reduced<ext> for input.
func DefaultReducedPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_reduced" + ext
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func runReducer(ctx context.Context, m *mesh.Mesh, opts reduce.Options) (*reduce.Result, error) {
	r, err := reduce.New(opts)
	if err != nil {
		return nil, err
	}
	return r.Reduce(ctx, m)
}

func (a *App) printSummary(res *reduce.Result, path string) {
	fmt.Fprintf(a.stdout, "Removed %d component(s) after clearance and view checks; kept %d. Saved to %s\n",
		res.Removed, res.Kept, path)
}
