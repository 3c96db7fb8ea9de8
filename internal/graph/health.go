package graph

import "math"

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Connectivity float64 `json:"connectivity"`
	Components   float64 `json:"components"`
	Integrity    float64 `json:"integrity"`
	Fragility    float64 `json:"fragility"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	HealthScore     float64         `json:"health_score"`
	HealthBreakdown HealthBreakdown `json:"health_breakdown"`
	Topology        *TopologyReport `json:"topology"`
	Bridges         *BridgeReport   `json:"bridges"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	HubThreshold int
	TopN         int
	GroupKey     string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HubThreshold: 10,
		TopN:         50,
		GroupKey:     "category",
	}
}

// Analyze runs all analyses and computes a composite health score in [0, 1].
// Integrity drops with the share of edges pointing at missing vertices.
func Analyze(g *Graph, config *AnalyzerConfig) *AnalysisReport {
	topology := ComputeTopology(g, config.HubThreshold, config.TopN)
	bridges := ComputeBridges(g, config.GroupKey)

	total := float64(topology.TotalVertices)
	var connectivity, components, integrity, fragility float64

	if total > 0 {
		connectivity = clamp(1.0-math.Min(float64(topology.OrphanCount)/total, 0.2)*5.0, 0, 1)
		fragility = clamp(1.0-math.Min(float64(bridges.APCount)/total, 0.05)*20.0, 0, 1)
	}
	if topology.NumComponents > 0 {
		components = clamp(1.0/float64(topology.NumComponents), 0, 1)
	}
	integrity = 1.0
	if topology.TotalEdges > 0 {
		integrity = clamp(1.0-float64(topology.DanglingEdges)/float64(topology.TotalEdges), 0, 1)
	}
	if total == 0 {
		integrity = 0
	}

	return &AnalysisReport{
		HealthScore: 0.30*connectivity + 0.25*components + 0.25*integrity + 0.20*fragility,
		HealthBreakdown: HealthBreakdown{
			Connectivity: connectivity,
			Components:   components,
			Integrity:    integrity,
			Fragility:    fragility,
		},
		Topology: topology,
		Bridges:  bridges,
	}
}

func clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
