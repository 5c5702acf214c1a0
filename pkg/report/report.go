// Package report records what a reduction run did: a JSON summary with
// the per-candidate trace, and an optional plot of that trace.
package report

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/chazu/anamorph/pkg/mesh"
	"github.com/chazu/anamorph/pkg/reduce"
)

// Settings are the reducer options that shaped a run.
type Settings struct {
	Clearance           float64 `json:"clearance"`
	ImageSize           int     `json:"image_size"`
	DifferenceThreshold float64 `json:"difference_threshold"`
	MaxCandidates       int     `json:"max_candidates,omitempty"`
	Partitioner         string  `json:"partitioner"`
}

// Report summarizes one reduction.
type Report struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Input     string    `json:"input,omitempty"`
	Output    string    `json:"output,omitempty"`
	Settings  Settings  `json:"settings"`

	InputTriangles  int `json:"input_triangles"`
	OutputTriangles int `json:"output_triangles"`

	Components         int `json:"components"`
	Kept               int `json:"kept"`
	Removed            int `json:"removed"`
	RemovedByClearance int `json:"removed_by_clearance"`
	Pruned             int `json:"pruned"`

	Steps []reduce.Step `json:"steps"`
}

// New builds the report for a finished run. in is the mesh that was
// reduced; input and output are the file paths, if any.
func New(input, output string, opts reduce.Options, in *mesh.Mesh, res *reduce.Result) *Report {
	r := &Report{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Input:     input,
		Output:    output,
		Settings: Settings{
			Clearance:           opts.Clearance,
			ImageSize:           opts.ImageSize,
			DifferenceThreshold: opts.DifferenceThreshold,
			MaxCandidates:       opts.MaxCandidates,
			Partitioner:         opts.Partitioner,
		},
		Components:         res.Components,
		Kept:               res.Kept,
		Removed:            res.Removed,
		RemovedByClearance: res.RemovedByClearance,
		Pruned:             res.Pruned,
		Steps:              res.Steps,
	}
	if in != nil {
		r.InputTriangles = in.TriangleCount()
	}
	if res.Mesh != nil {
		r.OutputTriangles = res.Mesh.TriangleCount()
	}
	if r.Steps == nil {
		r.Steps = []reduce.Step{}
	}
	return r
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	return nil
}

// Save writes the report to path.
func (r *Report) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a report written by Save.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: parse %s: %w", path, err)
	}
	return &r, nil
}

var (
	acceptedColor  = color.RGBA{R: 34, G: 139, B: 34, A: 255}
	rejectedColor  = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	thresholdColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// TracePlot plots the worst per-view difference ratio of every tested
// candidate, in test order, against the acceptance threshold.
func TracePlot(steps []reduce.Step, threshold float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Reduction trace"
	p.X.Label.Text = "Candidate"
	p.Y.Label.Text = "Max view difference ratio"

	var accepted, rejected plotter.XYs
	n := 0
	for _, s := range steps {
		if !s.Tested {
			continue
		}
		pt := plotter.XY{X: float64(n), Y: s.MaxRatio()}
		if s.Accepted {
			accepted = append(accepted, pt)
		} else {
			rejected = append(rejected, pt)
		}
		n++
	}

	last := float64(n - 1)
	if last < 1 {
		last = 1
	}
	line, err := plotter.NewLine(plotter.XYs{{X: 0, Y: threshold}, {X: last, Y: threshold}})
	if err != nil {
		return nil, fmt.Errorf("report: threshold line: %w", err)
	}
	line.Color = thresholdColor
	line.Width = vg.Points(1)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add("threshold", line)

	for _, series := range []struct {
		name string
		pts  plotter.XYs
		c    color.Color
	}{
		{"accepted", accepted, acceptedColor},
		{"rejected", rejected, rejectedColor},
	} {
		if len(series.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(series.pts)
		if err != nil {
			return nil, fmt.Errorf("report: %s points: %w", series.name, err)
		}
		sc.GlyphStyle.Color = series.c
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(series.name, sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SaveTracePlot renders TracePlot to path. The format follows the file
// extension (png, svg, pdf).
func SaveTracePlot(steps []reduce.Step, threshold float64, path string) error {
	p, err := TracePlot(steps, threshold)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save plot: %w", err)
	}
	return nil
}
