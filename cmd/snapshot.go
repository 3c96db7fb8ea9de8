package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rcaprobe/topocheck/internal/graph"
	"rcaprobe/topocheck/internal/store"
)

var (
	snapshotFormat string
	snapshotJSON   bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save, load, list and delete named graph snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save NAME [payload.json]",
	Short: "Build a graph from a payload and store it under NAME",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd, args[1:])
		if err != nil {
			return err
		}
		d, err := OpenDatabase(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		snap, err := d.SaveGraph(cmd.Context(), args[0], g)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %d vertices, %d edges\n", snap.Name, snap.VertexCount, snap.EdgeCount)
		return nil
	},
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load NAME",
	Short: "Print a stored snapshot as a flat payload or as vertex and edge lists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer d.Close()

		g, err := d.LoadGraph(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeGraph(cmd.OutOrStdout(), g, snapshotFormat, cfg.LoadOptions(logger))
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer d.Close()

		snaps, err := d.List(cmd.Context())
		if err != nil {
			return err
		}
		return writeSnapshots(cmd.OutOrStdout(), snaps, snapshotJSON)
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	snapshotSaveCmd.Flags().StringVar(&inputShape, "shape", "auto", "Payload shape: auto, flat or tree")
	snapshotLoadCmd.Flags().StringVar(&snapshotFormat, "format", "flat", "Output format: flat or lists")
	snapshotListCmd.Flags().BoolVar(&snapshotJSON, "json", false, "Output as JSON")

	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLoadCmd, snapshotListCmd, snapshotDeleteCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// graphLists is the "lists" output format: vertices and edges as stored
type graphLists struct {
	Vertices []graph.Vertex `json:"vertices"`
	Edges    []graph.Edge   `json:"edges"`
}

func writeGraph(w io.Writer, g *graph.Graph, format string, opts graph.LoadOptions) error {
	var out interface{}
	switch format {
	case "flat":
		out = graph.ToFlat(g, opts)
	case "lists":
		out = graphLists{Vertices: g.Vertices(graph.MatchAll()), Edges: g.AllEdges()}
	default:
		return fmt.Errorf("unknown format %q (want flat or lists)", format)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeSnapshots(w io.Writer, snaps []store.Snapshot, asJSON bool) error {
	if asJSON {
		if snaps == nil {
			snaps = []store.Snapshot{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	}
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No snapshots")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCREATED\tVERTICES\tEDGES")
	for _, s := range snaps {
		created := time.UnixMilli(s.CreatedAt).Format("2006-01-02 15:04:05")
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", s.Name, created, s.VertexCount, s.EdgeCount)
	}
	return tw.Flush()
}
