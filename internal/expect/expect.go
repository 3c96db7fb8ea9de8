// Package expect compares a graph against expected vertex, edge and degree
// counts and reports every mismatch.
package expect

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"rcaprobe/topocheck/internal/graph"
)

// Expectations is the document loaded from an expectations file
type Expectations struct {
	TotalVertices *int          `yaml:"total_vertices"`
	Vertices      []VertexCheck `yaml:"vertices"`
	Edges         EdgeCheck     `yaml:"edges"`
	Degrees       []DegreeCheck `yaml:"degrees"`
}

// VertexCheck expects Count vertices to match Filter
type VertexCheck struct {
	Name   string                 `yaml:"name"`
	Filter map[string]interface{} `yaml:"filter"`
	Count  *int                   `yaml:"count"`
}

// EdgeCheck expects a total edge count and per-label counts
type EdgeCheck struct {
	Total  *int           `yaml:"total"`
	Labels map[string]int `yaml:"labels"`
}

// DegreeCheck expects every vertex matching Filter to have Edges incident
// edges, counting both directions
type DegreeCheck struct {
	Name   string                 `yaml:"name"`
	Filter map[string]interface{} `yaml:"filter"`
	Edges  *int                   `yaml:"edges"`
}

// Load decodes an expectations document. Unknown fields are rejected and
// every vertex and degree check must state its expected number.
func Load(r io.Reader) (*Expectations, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var e Expectations
	if err := dec.Decode(&e); err != nil {
		if errors.Is(err, io.EOF) {
			return &e, nil
		}
		return nil, fmt.Errorf("parsing expectations: %w", err)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Expectations) validate() error {
	for i, c := range e.Vertices {
		if c.Count == nil {
			return fmt.Errorf("vertices[%d] (%s): missing count", i, name(c.Name, "vertices"))
		}
	}
	for i, c := range e.Degrees {
		if c.Edges == nil {
			return fmt.Errorf("degrees[%d] (%s): missing edges", i, name(c.Name, "degree"))
		}
	}
	return nil
}

// Kind says what a mismatch measured
type Kind string

const (
	KindVertices      Kind = "vertices"
	KindTotalVertices Kind = "total_vertices"
	KindTotalEdges    Kind = "total_edges"
	KindLabel         Kind = "label"
	KindDegree        Kind = "degree"
	KindNoSubject     Kind = "no_subject"
)

// Mismatch is one failed expectation
type Mismatch struct {
	Kind     Kind   `json:"kind"`
	Check    string `json:"check"`
	Filter   string `json:"filter,omitempty"`
	Vertex   string `json:"vertex,omitempty"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
}

func (m Mismatch) String() string {
	switch m.Kind {
	case KindVertices:
		return fmt.Sprintf("%s %s: expected %d vertices, got %d", m.Check, m.Filter, m.Expected, m.Actual)
	case KindTotalVertices:
		return fmt.Sprintf("total vertices: expected %d, got %d", m.Expected, m.Actual)
	case KindTotalEdges:
		return fmt.Sprintf("total edges: expected %d, got %d", m.Expected, m.Actual)
	case KindLabel:
		return fmt.Sprintf("edges labeled %q: expected %d, got %d", m.Check, m.Expected, m.Actual)
	case KindDegree:
		return fmt.Sprintf("%s %s: vertex %s expected %d edges, got %d", m.Check, m.Filter, m.Vertex, m.Expected, m.Actual)
	case KindNoSubject:
		return fmt.Sprintf("%s %s: no vertex matches the degree filter", m.Check, m.Filter)
	default:
		return fmt.Sprintf("%s: expected %d, got %d", m.Check, m.Expected, m.Actual)
	}
}

// Report collects the outcome of running expectations against a graph
type Report struct {
	Checks     int        `json:"checks"`
	Mismatches []Mismatch `json:"mismatches"`
}

// OK reports whether every check passed
func (r *Report) OK() bool { return len(r.Mismatches) == 0 }

func (r *Report) String() string {
	if r.OK() {
		return fmt.Sprintf("%d checks passed", r.Checks)
	}
	lines := make([]string, 0, len(r.Mismatches)+1)
	lines = append(lines, fmt.Sprintf("%d mismatches in %d checks:", len(r.Mismatches), r.Checks))
	for _, m := range r.Mismatches {
		lines = append(lines, "  - "+m.String())
	}
	return strings.Join(lines, "\n")
}

// FailedError wraps a report with mismatches so it can travel as an error
type FailedError struct {
	Report *Report
}

func (e *FailedError) Error() string { return e.Report.String() }

// Err returns nil when the report is clean, a *FailedError otherwise
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return &FailedError{Report: r}
}

// Check runs every expectation against g. Entries without an expected
// number are skipped; Load rejects them.
func (e *Expectations) Check(g *graph.Graph) *Report {
	r := &Report{Mismatches: []Mismatch{}}

	if e.TotalVertices != nil {
		r.compare(Mismatch{Kind: KindTotalVertices, Check: "total_vertices", Expected: *e.TotalVertices, Actual: g.NumVertices()})
	}

	for _, c := range e.Vertices {
		if c.Count == nil {
			continue
		}
		f := graph.FilterFrom(c.Filter)
		r.compare(Mismatch{
			Kind:     KindVertices,
			Check:    name(c.Name, "vertices"),
			Filter:   f.String(),
			Expected: *c.Count,
			Actual:   g.CountVertices(f),
		})
	}

	if e.Edges.Total != nil {
		r.compare(Mismatch{Kind: KindTotalEdges, Check: "total_edges", Expected: *e.Edges.Total, Actual: g.NumEdges()})
	}
	if len(e.Edges.Labels) > 0 {
		actual := g.EdgeLabels()
		labels := make([]string, 0, len(e.Edges.Labels))
		for l := range e.Edges.Labels {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			r.compare(Mismatch{Kind: KindLabel, Check: l, Expected: e.Edges.Labels[l], Actual: actual[l]})
		}
	}

	for _, c := range e.Degrees {
		if c.Edges == nil {
			continue
		}
		f := graph.FilterFrom(c.Filter)
		check := name(c.Name, "degree")
		want := *c.Edges
		subjects := g.Vertices(f)
		r.Checks++
		if len(subjects) == 0 {
			r.Mismatches = append(r.Mismatches, Mismatch{Kind: KindNoSubject, Check: check, Filter: f.String(), Expected: 1})
			continue
		}
		for _, v := range subjects {
			if d := g.Degree(v.ID); d != want {
				r.Mismatches = append(r.Mismatches, Mismatch{
					Kind:     KindDegree,
					Check:    check,
					Filter:   f.String(),
					Vertex:   v.ID,
					Expected: want,
					Actual:   d,
				})
			}
		}
	}

	return r
}

func (r *Report) compare(m Mismatch) {
	r.Checks++
	if m.Expected != m.Actual {
		r.Mismatches = append(r.Mismatches, m)
	}
}

func name(n, fallback string) string {
	if n != "" {
		return n
	}
	return fallback
}
