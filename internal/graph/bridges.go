package graph

import "sort"

// ArticulationPoint is a vertex whose removal disconnects its component
type ArticulationPoint struct {
	ID        string `json:"id"`
	Neighbors int    `json:"neighbors"`
}

// BridgeEdge is a connection whose removal disconnects its component
type BridgeEdge struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// GroupConnection counts edges running between two vertex groups
type GroupConnection struct {
	GroupA     string `json:"group_a"`
	GroupB     string `json:"group_b"`
	CrossEdges int    `json:"cross_edges"`
	Fragile    bool   `json:"fragile"`
}

// BridgeReport contains bridge analysis results
type BridgeReport struct {
	GroupKey           string              `json:"group_key"`
	ArticulationPoints []ArticulationPoint `json:"articulation_points"`
	BridgeEdges        []BridgeEdge        `json:"bridge_edges"`
	GroupConnections   []GroupConnection   `json:"group_connections"`
	APCount            int                 `json:"ap_count"`
	BridgeCount        int                 `json:"bridge_count"`
}

// fragileThreshold is the largest cross-group edge count still flagged fragile
const fragileThreshold = 2

// ComputeBridges finds articulation points and bridges on the undirected
// simple view of the graph (parallel edges and labels collapse, dangling
// edges and self-loops are ignored), then counts edges between the groups
// formed by the groupKey attribute.
func ComputeBridges(g *Graph, groupKey string) *BridgeReport {
	report := &BridgeReport{GroupKey: groupKey}

	ids := g.VertexIDs()
	if len(ids) == 0 {
		return report
	}
	idx := make(map[string]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	edges := g.AllEdges()

	adj := make([][]int, len(ids))
	seen := make(map[[2]int]bool)
	for _, e := range edges {
		u, okU := idx[e.Source]
		v, okV := idx[e.Target]
		if !okU || !okV || u == v {
			continue
		}
		key := [2]int{u, v}
		if u > v {
			key = [2]int{v, u}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		adj[u] = append(adj[u], v)
		adj[v] = append(adj[v], u)
	}

	isAP, bridgePairs := tarjan(adj)

	for i, ap := range isAP {
		if ap {
			report.ArticulationPoints = append(report.ArticulationPoints, ArticulationPoint{
				ID:        ids[i],
				Neighbors: len(adj[i]),
			})
		}
	}
	for _, p := range bridgePairs {
		report.BridgeEdges = append(report.BridgeEdges, BridgeEdge{
			SourceID: ids[p[0]],
			TargetID: ids[p[1]],
		})
	}
	sort.Slice(report.BridgeEdges, func(i, j int) bool {
		a, b := report.BridgeEdges[i], report.BridgeEdges[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.TargetID < b.TargetID
	})
	report.APCount = len(report.ArticulationPoints)
	report.BridgeCount = len(report.BridgeEdges)

	if groupKey != "" {
		report.GroupConnections = groupConnections(g, edges, groupKey)
	}
	return report
}

// tarjan runs an iterative DFS computing discovery and low-link times
func tarjan(adj [][]int) ([]bool, [][2]int) {
	n := len(adj)
	disc := make([]int, n)
	low := make([]int, n)
	isAP := make([]bool, n)
	var bridges [][2]int
	counter := 0

	type frame struct{ node, parent, next int }

	for start := 0; start < n; start++ {
		if disc[start] != 0 {
			continue
		}
		counter++
		disc[start], low[start] = counter, counter
		stack := []frame{{start, -1, 0}}
		rootChildren := 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := top.node

			if top.next < len(adj[node]) {
				child := adj[node][top.next]
				top.next++
				if child == top.parent {
					continue
				}
				if disc[child] != 0 {
					low[node] = min(low[node], disc[child])
					continue
				}
				counter++
				disc[child], low[child] = counter, counter
				if node == start {
					rootChildren++
				}
				stack = append(stack, frame{child, node, 0})
				continue
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				break
			}
			parent := stack[len(stack)-1].node
			low[parent] = min(low[parent], low[node])
			if low[node] > disc[parent] {
				bridges = append(bridges, [2]int{parent, node})
			}
			if parent != start && low[node] >= disc[parent] {
				isAP[parent] = true
			}
		}

		if rootChildren >= 2 {
			isAP[start] = true
		}
	}
	return isAP, bridges
}

func groupConnections(g *Graph, edges []Edge, groupKey string) []GroupConnection {
	groupOf := func(id string) string {
		v, ok := g.Vertex(id)
		if !ok {
			return "unassigned"
		}
		if val, ok := v.Attributes.Get(groupKey); ok {
			return val.String()
		}
		return "unassigned"
	}

	type pair struct{ a, b string }
	counts := make(map[pair]int)
	for _, e := range edges {
		ga, gb := groupOf(e.Source), groupOf(e.Target)
		if ga == gb {
			continue
		}
		if ga > gb {
			ga, gb = gb, ga
		}
		counts[pair{ga, gb}]++
	}

	result := make([]GroupConnection, 0, len(counts))
	for p, c := range counts {
		result = append(result, GroupConnection{
			GroupA:     p.a,
			GroupB:     p.b,
			CrossEdges: c,
			Fragile:    c <= fragileThreshold,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CrossEdges != result[j].CrossEdges {
			return result[i].CrossEdges < result[j].CrossEdges
		}
		if result[i].GroupA != result[j].GroupA {
			return result[i].GroupA < result[j].GroupA
		}
		return result[i].GroupB < result[j].GroupB
	})
	return result
}
