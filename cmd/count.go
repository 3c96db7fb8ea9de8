package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"rcaprobe/topocheck/internal/graph"
)

var (
	countFilters []string
	countVertex  string
	countJSON    bool
	countList    bool
)

// VertexDegree is the incidence count for a single vertex
type VertexDegree struct {
	ID     string `json:"id"`
	Exists bool   `json:"exists"`
	Degree int    `json:"degree"`
	In     int    `json:"in"`
	Out    int    `json:"out"`
}

// CountResult is what the count command reports
type CountResult struct {
	Filter        string         `json:"filter"`
	Matched       int            `json:"matched"`
	MatchedIDs    []string       `json:"matched_ids,omitempty"`
	TotalVertices int            `json:"total_vertices"`
	TotalEdges    int            `json:"total_edges"`
	EdgeLabels    map[string]int `json:"edge_labels"`
	Vertex        *VertexDegree  `json:"vertex,omitempty"`
}

var countCmd = &cobra.Command{
	Use:   "count [payload.json]",
	Short: "Count vertices matching an attribute filter, plus totals",
	Example: `  topocheck count topology.json --filter category=RESOURCE --filter type=nova.host --filter is_deleted=false
  topocheck count tree.json --vertex host-1
  topocheck count --from-snapshot baseline --filter '!state'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := graph.ParseFilter(countFilters)
		if err != nil {
			return err
		}
		g, err := loadGraph(cmd, args)
		if err != nil {
			return err
		}
		res := countGraph(g, filter, countVertex, countList)
		return writeCount(cmd.OutOrStdout(), res, countJSON)
	},
}

func init() {
	countCmd.Flags().StringArrayVarP(&countFilters, "filter", "f", nil, "Attribute clause key=value or !key (repeatable)")
	countCmd.Flags().StringVar(&countVertex, "vertex", "", "Also report the degree of this vertex ID")
	countCmd.Flags().BoolVar(&countJSON, "json", false, "Output as JSON")
	countCmd.Flags().BoolVar(&countList, "list", false, "List matching vertex IDs")
	addInputFlags(countCmd)
	rootCmd.AddCommand(countCmd)
}

func countGraph(g *graph.Graph, filter graph.Filter, vertexID string, list bool) *CountResult {
	res := &CountResult{
		Filter:        filter.String(),
		TotalVertices: g.NumVertices(),
		TotalEdges:    g.NumEdges(),
		EdgeLabels:    g.EdgeLabels(),
	}
	if list {
		for _, v := range g.Vertices(filter) {
			res.MatchedIDs = append(res.MatchedIDs, v.ID)
		}
		res.Matched = len(res.MatchedIDs)
	} else {
		res.Matched = g.CountVertices(filter)
	}

	if vertexID != "" {
		res.Vertex = &VertexDegree{
			ID:     vertexID,
			Exists: g.HasVertex(vertexID),
			Degree: g.Degree(vertexID),
			In:     len(g.InEdges(vertexID)),
			Out:    len(g.OutEdges(vertexID)),
		}
	}
	return res
}

func writeCount(w io.Writer, res *CountResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "Matched: %d  filter=%s\n", res.Matched, res.Filter)
	for _, id := range res.MatchedIDs {
		fmt.Fprintf(w, "  - %s\n", id)
	}
	fmt.Fprintf(w, "Vertices: %d  Edges: %d\n", res.TotalVertices, res.TotalEdges)

	for _, l := range sortedKeys(res.EdgeLabels) {
		name := l
		if name == "" {
			name = "(unlabeled)"
		}
		fmt.Fprintf(w, "  %s: %d\n", name, res.EdgeLabels[l])
	}

	if v := res.Vertex; v != nil {
		state := ""
		if !v.Exists {
			state = " (not a vertex)"
		}
		fmt.Fprintf(w, "Vertex %s%s: degree=%d (in=%d, out=%d)\n", v.ID, state, v.Degree, v.In, v.Out)
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
