package store

import (
	"encoding/json"
	"fmt"

	"rcaprobe/topocheck/internal/graph"
)

// Snapshot describes a stored graph
type Snapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedAt   int64  `json:"created_at"` // Unix millis
	VertexCount int    `json:"vertex_count"`
	EdgeCount   int    `json:"edge_count"`
}

// scanSnapshot scans a row into a Snapshot. The row must have all 5 columns in standard order.
func scanSnapshot(scanner interface{ Scan(dest ...any) error }) (Snapshot, error) {
	var s Snapshot
	err := scanner.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.VertexCount, &s.EdgeCount)
	return s, err
}

func encodeAttributes(attrs graph.Attributes) (string, error) {
	if attrs == nil {
		attrs = graph.Attributes{}
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encoding attributes: %w", err)
	}
	return string(b), nil
}

func decodeAttributes(raw string) (graph.Attributes, error) {
	var attrs graph.Attributes
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("decoding attributes: %w", err)
	}
	return attrs, nil
}
