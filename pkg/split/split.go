// Package split partitions a mesh into connected components.
//
// Connectivity is face adjacency through shared vertices, which also
// covers shared edges. Components do not need to be closed solids, so
// non-manifold fragments produced by boolean intersections split cleanly.
//
// The graph algorithm is a capability behind the Partitioner interface.
// Implementations register themselves by name; asking for one that is not
// available yields a *CapabilityError rather than a crash.
package split

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/chazu/anamorph/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrCapabilityMissing is wrapped by CapabilityError.
var ErrCapabilityMissing = errors.New("connectivity capability not available")

// CapabilityError names a partitioner that was requested but is not
// available in this build.
type CapabilityError struct {
	Name      string
	Available []string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("split: partitioner %q not available (have: %s); "+
		"rebuild with a connectivity backend or choose one of the available partitioners",
		e.Name, strings.Join(e.Available, ", "))
}

func (e *CapabilityError) Unwrap() error { return ErrCapabilityMissing }

// Partitioner groups faces into connected components. faces holds vertex
// indices in [0, vertexCount). The returned groups contain face indices;
// every face appears in exactly one group.
type Partitioner interface {
	Partition(faces []mesh.Face, vertexCount int) ([][]int, error)
}

// DefaultPartitioner is the name used when none is configured.
const DefaultPartitioner = "gonum"

var (
	registryMu sync.RWMutex
	registry   = map[string]Partitioner{}
)

// Register makes a partitioner available under name. Registering the same
// name twice replaces the earlier entry.
func Register(name string, p Partitioner) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = p
}

// Available returns the registered partitioner names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the partitioner registered under name. An empty name
// selects DefaultPartitioner.
func Lookup(name string) (Partitioner, error) {
	if name == "" {
		name = DefaultPartitioner
	}
	registryMu.RLock()
	p, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &CapabilityError{Name: name, Available: Available()}
	}
	return p, nil
}

// Split breaks m into its connected components. Each component owns a
// compacted copy of its vertices and faces. Components, and the faces
// within each component, are ordered by geometry so the result does not
// depend on the order of faces in m.
func Split(m *mesh.Mesh, p Partitioner) ([]*mesh.Mesh, error) {
	if p == nil {
		return nil, &CapabilityError{Name: "<nil>", Available: Available()}
	}
	if m.IsEmpty() {
		return nil, nil
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	groups, err := p.Partition(m.Faces, len(m.Vertices))
	if err != nil {
		return nil, fmt.Errorf("split: partition: %w", err)
	}
	if err := checkCover(groups, len(m.Faces)); err != nil {
		return nil, err
	}

	components := make([]*mesh.Mesh, 0, len(groups))
	for _, g := range groups {
		sorted := slices.Clone(g)
		slices.SortFunc(sorted, func(a, b int) int {
			return compareFaces(m, a, b)
		})
		components = append(components, m.Subset(sorted))
	}
	slices.SortStableFunc(components, compareComponents)
	return components, nil
}

// checkCover verifies that groups partition [0, n).
func checkCover(groups [][]int, n int) error {
	seen := make([]bool, n)
	count := 0
	for _, g := range groups {
		if len(g) == 0 {
			return errors.New("split: partitioner returned an empty component")
		}
		for _, fi := range g {
			if fi < 0 || fi >= n || seen[fi] {
				return fmt.Errorf("split: partitioner returned invalid or repeated face %d", fi)
			}
			seen[fi] = true
			count++
		}
	}
	if count != n {
		return fmt.Errorf("split: partitioner covered %d of %d faces", count, n)
	}
	return nil
}

func compareFaces(m *mesh.Mesh, a, b int) int {
	if c := compareTriangles(m.Triangle(a), m.Triangle(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func compareTriangles(ta, tb [3]r3.Vec) int {
	for k := range ta {
		if c := cmp.Compare(ta[k].X, tb[k].X); c != 0 {
			return c
		}
		if c := cmp.Compare(ta[k].Y, tb[k].Y); c != 0 {
			return c
		}
		if c := cmp.Compare(ta[k].Z, tb[k].Z); c != 0 {
			return c
		}
	}
	return 0
}

// compareComponents orders by bounds, then face count, then the faces
// themselves, which are already sorted within each component.
func compareComponents(a, b *mesh.Mesh) int {
	ba, bb := a.Bounds(), b.Bounds()
	keysA := [...]float64{ba.Min.X, ba.Min.Y, ba.Min.Z, ba.Max.X, ba.Max.Y, ba.Max.Z}
	keysB := [...]float64{bb.Min.X, bb.Min.Y, bb.Min.Z, bb.Max.X, bb.Max.Y, bb.Max.Z}
	for i := range keysA {
		if c := cmp.Compare(keysA[i], keysB[i]); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(a.TriangleCount(), b.TriangleCount()); c != 0 {
		return c
	}
	for i := range a.TriangleCount() {
		if c := compareTriangles(a.Triangle(i), b.Triangle(i)); c != 0 {
			return c
		}
	}
	return 0
}
