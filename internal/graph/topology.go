package graph

import "sort"

// Hub is a vertex with high connectivity
type Hub struct {
	ID        string `json:"id"`
	Degree    int    `json:"degree"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
}

// DegreeBucket is one bucket in the degree histogram
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopologyReport contains topology analysis results
type TopologyReport struct {
	TotalVertices     int            `json:"total_vertices"`
	TotalEdges        int            `json:"total_edges"`
	DanglingEdges     int            `json:"dangling_edges"`
	SelfLoops         int            `json:"self_loops"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	OrphanCount       int            `json:"orphan_count"`
	OrphanIDs         []string       `json:"orphan_ids"`
	DegreeHistogram   []DegreeBucket `json:"degree_histogram"`
	Hubs              []Hub          `json:"hubs"`
	EdgeLabels        map[string]int `json:"edge_labels"`
}

// ComputeTopology analyzes components, orphans, degree distribution and hubs.
// Degrees count every incident edge, including edges whose other endpoint was
// never added as a vertex. Components only join vertices that both exist.
func ComputeTopology(g *Graph, hubThreshold, topN int) *TopologyReport {
	if topN < 0 {
		topN = 0
	}
	ids := g.VertexIDs()
	edges := g.AllEdges()

	report := &TopologyReport{
		TotalVertices:   len(ids),
		TotalEdges:      len(edges),
		DegreeHistogram: defaultHistogram(),
		EdgeLabels:      g.EdgeLabels(),
	}

	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	uf := newUnionFind(ids)
	for _, e := range edges {
		if e.Source == e.Target {
			report.SelfLoops++
		}
		if !present[e.Source] || !present[e.Target] {
			report.DanglingEdges++
			continue
		}
		uf.union(e.Source, e.Target)
	}

	if len(ids) == 0 {
		return report
	}

	components := uf.components()
	report.NumComponents = len(components)
	report.SmallestComponent = len(ids)
	for _, c := range components {
		if len(c) > report.LargestComponent {
			report.LargestComponent = len(c)
		}
		if len(c) < report.SmallestComponent {
			report.SmallestComponent = len(c)
		}
	}

	var orphans []string
	var hubs []Hub
	for _, id := range ids {
		degree := g.Degree(id)
		report.DegreeHistogram[degreeBucket(degree)].Count++

		if degree == 0 {
			orphans = append(orphans, id)
		}
		if degree > hubThreshold {
			hubs = append(hubs, Hub{
				ID:        id,
				Degree:    degree,
				InDegree:  len(g.InEdges(id)),
				OutDegree: len(g.OutEdges(id)),
			})
		}
	}

	report.OrphanCount = len(orphans)
	if len(orphans) > topN {
		orphans = orphans[:topN]
	}
	report.OrphanIDs = orphans

	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].Degree > hubs[j].Degree })
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}
	report.Hubs = hubs

	return report
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}
