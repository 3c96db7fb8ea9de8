package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rcaprobe/topocheck/internal/graph"
)

var (
	inputShape    string
	inputSnapshot string
)

// addInputFlags registers the flags every graph-reading command shares
func addInputFlags(c *cobra.Command) {
	c.Flags().StringVar(&inputShape, "shape", "auto", "Payload shape: auto, flat or tree")
	c.Flags().StringVar(&inputSnapshot, "from-snapshot", "", "Read the graph from a stored snapshot instead of a payload")
}

// loadGraph reads the graph named by the command line: a stored snapshot,
// a payload file, or a payload on stdin when no file (or "-") is given
func loadGraph(c *cobra.Command, args []string) (*graph.Graph, error) {
	if inputSnapshot != "" {
		d, err := OpenDatabase(c.Context(), false)
		if err != nil {
			return nil, err
		}
		defer d.Close()
		return d.LoadGraph(c.Context(), inputSnapshot)
	}

	var r io.Reader = c.InOrStdin()
	source := "stdin"
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("opening payload: %w", err)
		}
		defer f.Close()
		r = f
		source = args[0]
	}

	g, shape, err := decodePayload(r, inputShape, cfg.LoadOptions(logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	logger.Debug("loaded payload", zap.String("source", source), zap.String("shape", string(shape)),
		zap.Int("vertices", g.NumVertices()), zap.Int("edges", g.NumEdges()))
	return g, nil
}

func decodePayload(r io.Reader, shape string, opts graph.LoadOptions) (*graph.Graph, graph.Shape, error) {
	switch graph.Shape(shape) {
	case graph.ShapeFlat:
		g, err := graph.DecodeFlat(r, opts)
		return g, graph.ShapeFlat, err
	case graph.ShapeTree:
		g, _, err := graph.DecodeTree(r, opts)
		return g, graph.ShapeTree, err
	case "auto", "":
		return graph.Decode(r, opts)
	default:
		return nil, "", fmt.Errorf("unknown shape %q (want auto, flat or tree)", shape)
	}
}
