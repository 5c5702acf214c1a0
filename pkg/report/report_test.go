package report

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/anamorph/pkg/mesh"
	"github.com/chazu/anamorph/pkg/reduce"
	"gonum.org/v1/gonum/spatial/r3"
)

func sampleRun() (*mesh.Mesh, *reduce.Result) {
	in := &mesh.Mesh{
		Vertices: []r3.Vec{{X: 0}, {X: 1}, {Y: 1}, {X: 5}, {X: 6}, {X: 5, Y: 1}},
		Faces:    []mesh.Face{{0, 1, 2}, {3, 4, 5}},
	}
	out := in.Subset([]int{0})
	res := &reduce.Result{
		Mesh:       out,
		Kept:       1,
		Removed:    1,
		Pruned:     1,
		Components: 2,
		Steps: []reduce.Step{
			{Component: 1, Distance: 5, Tested: true, Accepted: true, Ratios: [3]float64{0.0002, 0, 0.0004}},
		},
	}
	return in, res
}

func TestNew(t *testing.T) {
	in, res := sampleRun()
	opts := reduce.DefaultOptions()
	r := New("in.stl", "out.stl", opts, in, res)

	_, err := uuid.Parse(r.RunID)
	require.NoError(t, err, "run ID should be a UUID")
	assert.Equal(t, 2, r.InputTriangles)
	assert.Equal(t, 1, r.OutputTriangles)
	assert.Equal(t, 1, r.Kept)
	assert.Equal(t, 1, r.Pruned)
	assert.Equal(t, opts.DifferenceThreshold, r.Settings.DifferenceThreshold)
	assert.Equal(t, "gonum", r.Settings.Partitioner)
	assert.False(t, r.CreatedAt.IsZero())

	other := New("in.stl", "out.stl", opts, in, res)
	assert.NotEqual(t, r.RunID, other.RunID)
}

func TestNewWithoutSteps(t *testing.T) {
	in, res := sampleRun()
	res.Steps = nil
	r := New("", "", reduce.DefaultOptions(), in, res)

	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))
	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, []any{}, raw["steps"], "steps should encode as an empty list")
	assert.NotContains(t, raw, "input")
}

func TestSaveAndLoad(t *testing.T) {
	in, res := sampleRun()
	r := New("in.stl", "out.stl", reduce.DefaultOptions(), in, res)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, r.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestSaveTracePlot(t *testing.T) {
	steps := []reduce.Step{
		{Component: 3, Distance: 9, Tested: true, Accepted: true, Ratios: [3]float64{0.0005, 0, 0}},
		{Component: 2, Distance: 7},
		{Component: 1, Distance: 4, Tested: true, Ratios: [3]float64{0, 0.02, 0.01}},
	}
	path := filepath.Join(t.TempDir(), "trace.png")
	require.NoError(t, SaveTracePlot(steps, 0.001, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestTracePlotNoTestedSteps(t *testing.T) {
	p, err := TracePlot(nil, 0.001)
	require.NoError(t, err)
	assert.Equal(t, "Reduction trace", p.Title.Text)

	path := filepath.Join(t.TempDir(), "empty.svg")
	require.NoError(t, SaveTracePlot([]reduce.Step{{Component: 0}}, 0.001, path))
}
