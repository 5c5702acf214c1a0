package split

import (
	"github.com/chazu/anamorph/pkg/mesh"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

func init() {
	Register("gonum", GraphPartitioner{})
}

// GraphPartitioner finds components with gonum's graph library. Faces and
// vertices are both nodes of an undirected bipartite graph, with an edge
// from each face to its three corners, which keeps the graph linear in the
// mesh size even around high-valence vertices.
type GraphPartitioner struct{}

// Partition implements Partitioner.
func (GraphPartitioner) Partition(faces []mesh.Face, vertexCount int) ([][]int, error) {
	g := simple.NewUndirectedGraph()
	nf := int64(len(faces))
	for fi, f := range faces {
		fn := simple.Node(int64(fi))
		g.AddNode(fn)
		for _, vi := range f {
			vn := simple.Node(nf + int64(vi))
			if g.Node(vn.ID()) == nil {
				g.AddNode(vn)
			}
			if !g.HasEdgeBetween(fn.ID(), vn.ID()) {
				g.SetEdge(g.NewEdge(fn, vn))
			}
		}
	}

	var groups [][]int
	for _, cc := range topo.ConnectedComponents(g) {
		var group []int
		for _, n := range cc {
			if id := n.ID(); id < nf {
				group = append(group, int(id))
			}
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}
