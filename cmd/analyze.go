package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"rcaprobe/topocheck/internal/graph"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [payload.json]",
	Short: "Analyze graph structure: topology, dangling edges, bridges, health score",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd, args)
		if err != nil {
			return err
		}

		report := graph.Analyze(g, cfg.AnalyzerConfig())

		if analyzeJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printHumanReadable(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	defaults := graph.DefaultConfig()
	flags := analyzeCmd.Flags()
	flags.BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	flags.Int("top-n", defaults.TopN, "Number of top items to show per section")
	flags.Int("hub-threshold", defaults.HubThreshold, "Minimum degree to consider a vertex a hub")
	flags.String("group-key", defaults.GroupKey, "Vertex attribute that groups vertices for cross-group edge counts")
	_ = v.BindPFlag("top_n", flags.Lookup("top-n"))
	_ = v.BindPFlag("hub_threshold", flags.Lookup("hub-threshold"))
	_ = v.BindPFlag("group_key", flags.Lookup("group-key"))
	addInputFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(w io.Writer, report *graph.AnalysisReport) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Fprintf(w, "\n  Graph Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Fprintf(w, "  breakdown: connectivity=%.2f components=%.2f integrity=%.2f fragility=%.2f\n\n",
		report.HealthBreakdown.Connectivity,
		report.HealthBreakdown.Components,
		report.HealthBreakdown.Integrity,
		report.HealthBreakdown.Fragility)

	// Topology
	t := report.Topology
	fmt.Fprintln(w, "  TOPOLOGY")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Vertices: %d  Edges: %d  Components: %d\n", t.TotalVertices, t.TotalEdges, t.NumComponents)
	fmt.Fprintf(w, "  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)
	if t.DanglingEdges > 0 {
		fmt.Fprintf(w, "  Dangling edges: %d (endpoint is not a vertex)\n", t.DanglingEdges)
	}
	if t.SelfLoops > 0 {
		fmt.Fprintf(w, "  Self-loops: %d\n", t.SelfLoops)
	}

	if t.OrphanCount > 0 {
		fmt.Fprintf(w, "  Orphans: %d disconnected vertices\n", t.OrphanCount)
		limit := 5
		if len(t.OrphanIDs) < limit {
			limit = len(t.OrphanIDs)
		}
		for _, id := range t.OrphanIDs[:limit] {
			fmt.Fprintf(w, "    - %s\n", truncID(id, 40))
		}
		if t.OrphanCount > 5 {
			fmt.Fprintf(w, "    ... and %d more\n", t.OrphanCount-5)
		}
	}

	if len(t.EdgeLabels) > 0 {
		fmt.Fprintln(w, "\n  Edge labels:")
		for _, l := range sortedKeys(t.EdgeLabels) {
			name := l
			if name == "" {
				name = "(unlabeled)"
			}
			fmt.Fprintf(w, "    %-20s %d\n", name, t.EdgeLabels[l])
		}
	}

	// Degree distribution
	fmt.Fprintln(w, "\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			if barWidth < 1 {
				barWidth = 1
			}
			fmt.Fprintf(w, "    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	// Hubs
	if len(t.Hubs) > 0 {
		fmt.Fprintln(w, "\n  Top hubs (degree > threshold):")
		for _, hub := range t.Hubs {
			fmt.Fprintf(w, "    %s degree=%d (in=%d, out=%d)\n",
				truncID(hub.ID, 40), hub.Degree, hub.InDegree, hub.OutDegree)
		}
	}

	// Bridges
	br := report.Bridges
	var fragile []graph.GroupConnection
	for _, gc := range br.GroupConnections {
		if gc.Fragile {
			fragile = append(fragile, gc)
		}
	}
	if br.APCount > 0 || br.BridgeCount > 0 || len(fragile) > 0 {
		fmt.Fprintln(w, "\n  STRUCTURAL FRAGILITY")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		if br.APCount > 0 {
			fmt.Fprintf(w, "  %d articulation points (removal disconnects graph):\n", br.APCount)
			limit := 10
			if len(br.ArticulationPoints) < limit {
				limit = len(br.ArticulationPoints)
			}
			for _, ap := range br.ArticulationPoints[:limit] {
				fmt.Fprintf(w, "    %s (%d neighbors)\n", truncID(ap.ID, 40), ap.Neighbors)
			}
		}
		if br.BridgeCount > 0 {
			fmt.Fprintf(w, "  %d bridge edges (removal disconnects graph):\n", br.BridgeCount)
			limit := 10
			if len(br.BridgeEdges) < limit {
				limit = len(br.BridgeEdges)
			}
			for _, be := range br.BridgeEdges[:limit] {
				fmt.Fprintf(w, "    %s -> %s\n", truncID(be.SourceID, 30), truncID(be.TargetID, 30))
			}
		}
		if len(fragile) > 0 {
			fmt.Fprintf(w, "  %d fragile %s connections (<=2 edges):\n", len(fragile), br.GroupKey)
			limit := 10
			if len(fragile) < limit {
				limit = len(fragile)
			}
			for _, fc := range fragile[:limit] {
				s := ""
				if fc.CrossEdges != 1 {
					s = "s"
				}
				fmt.Fprintf(w, "    %s <-> %s (%d edge%s)\n",
					truncID(fc.GroupA, 25), truncID(fc.GroupB, 25), fc.CrossEdges, s)
			}
		}
	}

	fmt.Fprintln(w)
}

func truncID(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
