package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rcaprobe/topocheck/internal/expect"
	"rcaprobe/topocheck/internal/graph"
)

var (
	checkExpect string
	checkJSON   bool
)

var checkCmd = &cobra.Command{
	Use:   "check [payload.json]",
	Short: "Compare a graph against an expectations file and report every mismatch",
	Long: `Compare a graph against an expectations file.

The expectations file is YAML:

  total_vertices: 4
  vertices:
    - name: hosts
      filter: {category: RESOURCE, type: nova.host, is_deleted: false}
      count: 1
  edges:
    total: 3
    labels: {contains: 2, on: 1}
  degrees:
    - name: host fan-out
      filter: {type: nova.host}
      edges: 3

The command exits non-zero when any check fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exp, err := loadExpectations(checkExpect)
		if err != nil {
			return err
		}
		g, err := loadGraph(cmd, args)
		if err != nil {
			return err
		}

		report := runChecks(exp, g)
		if checkJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else if report.OK() {
			fmt.Fprintln(cmd.OutOrStdout(), report.String())
		}
		return report.Err()
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkExpect, "expect", "e", "", "Path to the expectations YAML file (required)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output the report as JSON")
	_ = checkCmd.MarkFlagRequired("expect")
	addInputFlags(checkCmd)
	rootCmd.AddCommand(checkCmd)
}

func loadExpectations(path string) (*expect.Expectations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening expectations: %w", err)
	}
	defer f.Close()
	return expect.Load(f)
}

func runChecks(exp *expect.Expectations, g *graph.Graph) *expect.Report {
	report := exp.Check(g)
	for _, m := range report.Mismatches {
		logger.Debug("check failed", zap.String("kind", string(m.Kind)), zap.String("check", m.Check),
			zap.Int("expected", m.Expected), zap.Int("actual", m.Actual))
	}
	logger.Info("checks complete", zap.Int("checks", report.Checks), zap.Int("mismatches", len(report.Mismatches)))
	return report
}
