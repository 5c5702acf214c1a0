// Package reduce removes mesh components that do not contribute to the
// three anamorphic silhouettes.
//
// Components floating above the ground plane are dropped outright. The
// rest are tested one at a time, farthest from the current center first,
// and a removal is kept only when every view still matches the accepted
// baseline within the difference threshold. The search is greedy: each
// component is tested once and a rejected component is never revisited,
// even if later removals would have made it removable.
package reduce

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/chazu/anamorph/pkg/logging"
	"github.com/chazu/anamorph/pkg/mesh"
	"github.com/chazu/anamorph/pkg/render"
	"github.com/chazu/anamorph/pkg/split"
	"gonum.org/v1/gonum/spatial/r3"
)

// Defaults.
const (
	DefaultClearance           = 0.01
	DefaultImageSize           = 800
	DefaultDifferenceThreshold = 0.001
)

var (
	// ErrNoComponents is returned when the input mesh has no faces.
	ErrNoComponents = errors.New("reduce: mesh has no components")

	// ErrNoGroundContact is returned when every component floats above the
	// ground plane.
	ErrNoGroundContact = errors.New("reduce: all components were removed by clearance filtering")

	// ErrEmptyMerge is returned when no components remain to merge.
	ErrEmptyMerge = errors.New("reduce: no mesh components remain after reduction")

	// ErrCandidateLimit is returned when the search would render more
	// candidates than Options.MaxCandidates allows.
	ErrCandidateLimit = errors.New("reduce: candidate limit reached")
)

// Oracle renders the three views of a mesh. *render.Renderer satisfies it.
type Oracle interface {
	RenderViews(m *mesh.Mesh, size int) (render.ViewSet, error)
}

// Options tunes a Reducer. The zero value of a field means its default,
// except Clearance where zero is a valid setting; use DefaultOptions.
type Options struct {
	// Clearance is the height above the ground plane within which a
	// component still counts as grounded.
	Clearance float64

	// ImageSize is the side of the square comparison raster in pixels.
	ImageSize int

	// DifferenceThreshold is the largest fraction of changed pixels, per
	// view, for a removal to be accepted.
	DifferenceThreshold float64

	// MaxCandidates caps the number of candidate renders. Zero means no
	// limit.
	MaxCandidates int

	// Partitioner names the connectivity capability, see split.Lookup.
	Partitioner string

	// Oracle renders candidate views. Nil uses a render.Renderer.
	Oracle Oracle
}

// DefaultOptions returns the standard settings.
func DefaultOptions() Options {
	return Options{
		Clearance:           DefaultClearance,
		ImageSize:           DefaultImageSize,
		DifferenceThreshold: DefaultDifferenceThreshold,
		Partitioner:         split.DefaultPartitioner,
	}
}

// Validate checks the numeric options.
func (o Options) Validate() error {
	if math.IsNaN(o.Clearance) || math.IsInf(o.Clearance, 0) || o.Clearance < 0 {
		return fmt.Errorf("reduce: clearance must be a non-negative number, got %v", o.Clearance)
	}
	if o.ImageSize < 0 {
		return fmt.Errorf("reduce: image size must be positive, got %d", o.ImageSize)
	}
	if math.IsNaN(o.DifferenceThreshold) || o.DifferenceThreshold < 0 || o.DifferenceThreshold > 1 {
		return fmt.Errorf("reduce: difference threshold must be in [0, 1], got %v", o.DifferenceThreshold)
	}
	if o.MaxCandidates < 0 {
		return fmt.Errorf("reduce: max candidates must not be negative, got %d", o.MaxCandidates)
	}
	return nil
}

// Step records one iteration of the removal search.
type Step struct {
	Component int                      `json:"component"`
	Distance  float64                  `json:"distance"`
	Tested    bool                     `json:"tested"`
	Accepted  bool                     `json:"accepted"`
	Ratios    [render.NumViews]float64 `json:"ratios"`
}

// MaxRatio returns the worst per-view difference ratio of the step.
func (s Step) MaxRatio() float64 {
	worst := 0.0
	for _, r := range s.Ratios {
		worst = math.Max(worst, r)
	}
	return worst
}

// Result is the outcome of a reduction.
type Result struct {
	Mesh *mesh.Mesh

	// Kept is the number of components in Mesh.
	Kept int
	// Removed is RemovedByClearance plus Pruned.
	Removed            int
	RemovedByClearance int
	// Pruned counts grounded components dropped by the view search.
	Pruned int

	Components int
	Steps      []Step
}

// Reducer runs the component removal search.
type Reducer struct {
	opts        Options
	partitioner split.Partitioner
	oracle      Oracle
}

// New returns a Reducer for opts. An unknown partitioner yields a
// *split.CapabilityError.
func New(opts Options) (*Reducer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.ImageSize == 0 {
		opts.ImageSize = DefaultImageSize
	}
	p, err := split.Lookup(opts.Partitioner)
	if err != nil {
		return nil, err
	}
	oracle := opts.Oracle
	if oracle == nil {
		oracle = render.New()
	}
	return &Reducer{opts: opts, partitioner: p, oracle: oracle}, nil
}

// Options returns the effective options.
func (r *Reducer) Options() Options { return r.opts }

// Reduce removes floating components from m and then every grounded
// component whose absence leaves all three silhouettes within tolerance.
// m is not modified.
func (r *Reducer) Reduce(ctx context.Context, m *mesh.Mesh) (*Result, error) {
	log := logging.Logger()

	if m.IsEmpty() {
		return nil, ErrNoComponents
	}
	groundLevel := m.MinZ()

	components, err := split.Split(m, r.partitioner)
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, ErrNoComponents
	}

	grounded, floating, err := filterGrounded(components, groundLevel, r.opts.Clearance)
	if err != nil {
		return nil, err
	}
	log.Debug("clearance filter",
		"components", len(components),
		"ground_level", groundLevel,
		"floating", floating)

	s := &search{
		reducer:    r,
		components: grounded,
		kept:       make([]bool, len(grounded)),
		considered: make([]bool, len(grounded)),
		centroids:  make([]r3.Vec, len(grounded)),
	}
	for i, c := range grounded {
		s.kept[i] = true
		s.centroids[i] = c.Centroid()
	}
	if err := s.run(ctx); err != nil {
		return nil, err
	}

	out, err := s.merge(s.kept)
	if err != nil {
		return nil, err
	}
	kept := s.keptCount()
	res := &Result{
		Mesh:               out,
		Kept:               kept,
		RemovedByClearance: floating,
		Pruned:             len(grounded) - kept,
		Components:         len(components),
		Steps:              s.steps,
	}
	res.Removed = res.RemovedByClearance + res.Pruned
	log.Info("reduced mesh",
		"kept", res.Kept,
		"removed", res.Removed,
		"removed_by_clearance", res.RemovedByClearance,
		"pruned", res.Pruned)
	return res, nil
}

// filterGrounded keeps the components whose lowest point is within
// clearance of the ground level and counts the rest.
func filterGrounded(components []*mesh.Mesh, groundLevel, clearance float64) ([]*mesh.Mesh, int, error) {
	var grounded []*mesh.Mesh
	floating := 0
	for _, c := range components {
		if c.MinZ() <= groundLevel+clearance {
			grounded = append(grounded, c)
		} else {
			floating++
		}
	}
	if len(grounded) == 0 {
		return nil, floating, ErrNoGroundContact
	}
	return grounded, floating, nil
}

// search is the explicit state of the greedy loop, indexed by component.
type search struct {
	reducer    *Reducer
	components []*mesh.Mesh
	centroids  []r3.Vec
	kept       []bool
	considered []bool
	baseline   render.ViewSet
	renders    int
	steps      []Step
}

func (s *search) run(ctx context.Context) error {
	base, err := s.merge(s.kept)
	if err != nil {
		return err
	}
	s.baseline, err = s.render(ctx, base)
	if err != nil {
		return err
	}

	for {
		idx, dist := s.farthest()
		if idx < 0 {
			return nil
		}
		step := Step{Component: idx, Distance: dist}

		candidate := make([]bool, len(s.kept))
		copy(candidate, s.kept)
		candidate[idx] = false

		cm, err := s.merge(candidate)
		if errors.Is(err, ErrEmptyMerge) {
			// Never reduce to nothing.
			s.considered[idx] = true
			s.steps = append(s.steps, step)
			continue
		}
		if err != nil {
			return err
		}

		views, err := s.render(ctx, cm)
		if err != nil {
			return err
		}
		step.Tested = true
		step.Ratios, err = compareViews(s.baseline, views)
		if err != nil {
			return err
		}
		if step.MaxRatio() <= s.reducer.opts.DifferenceThreshold {
			step.Accepted = true
			s.kept = candidate
			s.baseline = views
		}
		s.considered[idx] = true
		s.steps = append(s.steps, step)

		logging.Logger().Debug("candidate",
			"component", idx,
			"distance", dist,
			"max_ratio", step.MaxRatio(),
			"accepted", step.Accepted)
	}
}

// farthest returns the kept, unconsidered component whose centroid lies
// farthest from the mean centroid of all kept components, or -1 when none
// is left. The first component wins a tie.
func (s *search) farthest() (int, float64) {
	var sum r3.Vec
	n := 0
	for i, keep := range s.kept {
		if keep {
			sum = r3.Add(sum, s.centroids[i])
			n++
		}
	}
	if n == 0 {
		return -1, 0
	}
	center := r3.Scale(1/float64(n), sum)

	best, bestDist := -1, math.Inf(-1)
	for i := range s.components {
		if !s.kept[i] || s.considered[i] {
			continue
		}
		d := r3.Norm(r3.Sub(s.centroids[i], center))
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func (s *search) render(ctx context.Context, m *mesh.Mesh) (render.ViewSet, error) {
	if err := ctx.Err(); err != nil {
		return render.ViewSet{}, err
	}
	if limit := s.reducer.opts.MaxCandidates; limit > 0 && s.renders > limit {
		return render.ViewSet{}, fmt.Errorf("%w (%d)", ErrCandidateLimit, limit)
	}
	s.renders++
	views, err := s.reducer.oracle.RenderViews(m, s.reducer.opts.ImageSize)
	if err != nil {
		return render.ViewSet{}, fmt.Errorf("reduce: %w", err)
	}
	return views, nil
}

func (s *search) merge(flags []bool) (*mesh.Mesh, error) {
	var parts []*mesh.Mesh
	for i, keep := range flags {
		if keep {
			parts = append(parts, s.components[i])
		}
	}
	if len(parts) == 0 {
		return nil, ErrEmptyMerge
	}
	return mesh.Merge(parts...)
}

func (s *search) keptCount() int {
	n := 0
	for _, keep := range s.kept {
		if keep {
			n++
		}
	}
	return n
}

// compareViews returns the difference ratio of each view.
func compareViews(baseline, candidate render.ViewSet) ([render.NumViews]float64, error) {
	var ratios [render.NumViews]float64
	for _, v := range render.Views() {
		if baseline[v] == nil || candidate[v] == nil {
			return ratios, &render.Error{View: v.Name(), Err: errors.New("missing view")}
		}
		ratio, err := render.DifferenceRatio(baseline[v], candidate[v])
		if err != nil {
			return ratios, &render.Error{View: v.Name(), Err: err}
		}
		ratios[v] = ratio
	}
	return ratios, nil
}
