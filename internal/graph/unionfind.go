package graph

// unionFind tracks weakly connected components over a fixed set of vertex
// IDs, using path halving and union by size.
type unionFind struct {
	index  map[string]int
	ids    []string
	parent []int
	size   []int
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{
		index:  make(map[string]int, len(ids)),
		ids:    ids,
		parent: make([]int, len(ids)),
		size:   make([]int, len(ids)),
	}
	for i, id := range ids {
		uf.index[id] = i
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) root(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// union merges the components of a and b. IDs outside the set are ignored.
// Returns true if two components were merged.
func (uf *unionFind) union(a, b string) bool {
	ia, okA := uf.index[a]
	ib, okB := uf.index[b]
	if !okA || !okB {
		return false
	}
	ra, rb := uf.root(ia), uf.root(ib)
	if ra == rb {
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return true
}

// components returns the member IDs of each component, in input order
func (uf *unionFind) components() [][]string {
	byRoot := make(map[int]int)
	var result [][]string
	for i, id := range uf.ids {
		r := uf.root(i)
		slot, ok := byRoot[r]
		if !ok {
			slot = len(result)
			byRoot[r] = slot
			result = append(result, nil)
		}
		result[slot] = append(result[slot], id)
	}
	return result
}
