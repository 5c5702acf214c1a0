package split

import "github.com/chazu/anamorph/pkg/mesh"

func init() {
	Register("unionfind", UnionFindPartitioner{})
}

// UnionFindPartitioner joins faces through a disjoint-set forest over
// vertex indices. It needs no graph library and serves as a cross-check
// for GraphPartitioner.
type UnionFindPartitioner struct{}

// Partition implements Partitioner.
func (UnionFindPartitioner) Partition(faces []mesh.Face, vertexCount int) ([][]int, error) {
	parent := make([]int, vertexCount)
	rank := make([]uint8, vertexCount)
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		switch {
		case rank[ra] < rank[rb]:
			parent[ra] = rb
		case rank[ra] > rank[rb]:
			parent[rb] = ra
		default:
			parent[rb] = ra
			rank[ra]++
		}
	}

	for _, f := range faces {
		union(f[0], f[1])
		union(f[1], f[2])
	}

	index := make(map[int]int)
	var groups [][]int
	for fi, f := range faces {
		root := find(f[0])
		gi, ok := index[root]
		if !ok {
			gi = len(groups)
			index[root] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], fi)
	}
	return groups, nil
}
