package graph

import (
	"sort"
	"sync"
)

// Vertex is a node with a unique ID and its attributes
type Vertex struct {
	ID         string     `json:"id"`
	Attributes Attributes `json:"attributes"`
}

// EdgeKey identifies an edge. Re-adding the same key overwrites attributes.
type EdgeKey struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

func (k EdgeKey) less(o EdgeKey) bool {
	if k.Source != o.Source {
		return k.Source < o.Source
	}
	if k.Target != o.Target {
		return k.Target < o.Target
	}
	return k.Label < o.Label
}

// Edge is a directed, labeled connection carrying attributes
type Edge struct {
	EdgeKey
	Attributes Attributes `json:"attributes"`
}

// Graph is an in-memory directed graph whose vertices and edges carry
// attributes. Edges may reference vertices that were never added.
// All methods are safe for concurrent use.
type Graph struct {
	mu       sync.RWMutex
	vertices map[string]Attributes
	edges    map[EdgeKey]Attributes
	out      map[string]map[EdgeKey]struct{} // source -> keys
	in       map[string]map[EdgeKey]struct{} // target -> keys
}

// New returns an empty graph
func New() *Graph {
	return &Graph{
		vertices: make(map[string]Attributes),
		edges:    make(map[EdgeKey]Attributes),
		out:      make(map[string]map[EdgeKey]struct{}),
		in:       make(map[string]map[EdgeKey]struct{}),
	}
}

// AddVertex inserts a vertex or replaces the attributes of an existing one
func (g *Graph) AddVertex(id string, attrs Attributes) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vertices[id] = attrs.Clone()
}

// AddEdge inserts an edge or replaces the attributes of the edge with the
// same (source, target, label). Endpoints do not need to exist.
func (g *Graph) AddEdge(source, target, label string, attrs Attributes) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := EdgeKey{Source: source, Target: target, Label: label}
	g.edges[key] = attrs.Clone()
	link(g.out, source, key)
	link(g.in, target, key)
}

// RemoveVertex deletes the vertex. Incident edges are kept, the same way
// edges to never-added vertices are kept. Returns false if id was unknown.
func (g *Graph) RemoveVertex(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.vertices[id]; !ok {
		return false
	}
	delete(g.vertices, id)
	return true
}

// RemoveEdge deletes a single edge. Returns false if it did not exist.
func (g *Graph) RemoveEdge(source, target, label string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := EdgeKey{Source: source, Target: target, Label: label}
	if _, ok := g.edges[key]; !ok {
		return false
	}
	delete(g.edges, key)
	unlink(g.out, source, key)
	unlink(g.in, target, key)
	return true
}

// Vertex returns a copy of the vertex with the given ID
func (g *Graph) Vertex(id string) (Vertex, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	attrs, ok := g.vertices[id]
	if !ok {
		return Vertex{}, false
	}
	return Vertex{ID: id, Attributes: attrs.Clone()}, true
}

// HasVertex reports whether id was added as a vertex
func (g *Graph) HasVertex(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.vertices[id]
	return ok
}

// Vertices returns every vertex whose attributes satisfy f, sorted by ID.
// Callers should treat the result as a set.
func (g *Graph) Vertices(f Filter) []Vertex {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var result []Vertex
	for id, attrs := range g.vertices {
		if f.Matches(attrs) {
			result = append(result, Vertex{ID: id, Attributes: attrs.Clone()})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// CountVertices is len(Vertices(f)) without copying attributes
func (g *Graph) CountVertices(f Filter) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, attrs := range g.vertices {
		if f.Matches(attrs) {
			n++
		}
	}
	return n
}

// Edges returns every edge where id is the source or the target.
// A self-loop is reported once.
func (g *Graph) Edges(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make(map[EdgeKey]struct{}, len(g.out[id])+len(g.in[id]))
	for k := range g.out[id] {
		keys[k] = struct{}{}
	}
	for k := range g.in[id] {
		keys[k] = struct{}{}
	}
	return g.collect(keys)
}

// OutEdges returns the edges whose source is id
func (g *Graph) OutEdges(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collect(g.out[id])
}

// InEdges returns the edges whose target is id
func (g *Graph) InEdges(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collect(g.in[id])
}

// Degree is len(Edges(id))
func (g *Graph) Degree(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := len(g.out[id]) + len(g.in[id])
	for k := range g.out[id] {
		if k.Target == id {
			n--
		}
	}
	return n
}

// AllEdges returns every edge sorted by (source, target, label)
func (g *Graph) AllEdges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]Edge, 0, len(g.edges))
	for k, attrs := range g.edges {
		result = append(result, Edge{EdgeKey: k, Attributes: attrs.Clone()})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].less(result[j].EdgeKey) })
	return result
}

// NumVertices returns the number of distinct vertices
func (g *Graph) NumVertices() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.vertices)
}

// NumEdges returns the number of distinct (source, target, label) edges
func (g *Graph) NumEdges() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// VertexIDs returns a sorted list of all vertex IDs (for deterministic output)
func (g *Graph) VertexIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.vertexIDs()
}

func (g *Graph) vertexIDs() []string {
	ids := make([]string, 0, len(g.vertices))
	for id := range g.vertices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CountBy buckets vertices by the value of key. Vertices without the key
// land in the "" bucket.
func (g *Graph) CountBy(key string) map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	counts := make(map[string]int)
	for _, attrs := range g.vertices {
		bucket := ""
		if v, ok := attrs.Get(key); ok {
			bucket = v.String()
		}
		counts[bucket]++
	}
	return counts
}

// EdgeLabels counts edges per label
func (g *Graph) EdgeLabels() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	counts := make(map[string]int)
	for k := range g.edges {
		counts[k.Label]++
	}
	return counts
}

// Clone returns a deep copy
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c := New()
	for id, attrs := range g.vertices {
		c.vertices[id] = attrs.Clone()
	}
	for k, attrs := range g.edges {
		c.edges[k] = attrs.Clone()
		link(c.out, k.Source, k)
		link(c.in, k.Target, k)
	}
	return c
}

func (g *Graph) collect(keys map[EdgeKey]struct{}) []Edge {
	result := make([]Edge, 0, len(keys))
	for k := range keys {
		result = append(result, Edge{EdgeKey: k, Attributes: g.edges[k].Clone()})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].less(result[j].EdgeKey) })
	return result
}

func link(index map[string]map[EdgeKey]struct{}, id string, key EdgeKey) {
	set, ok := index[id]
	if !ok {
		set = make(map[EdgeKey]struct{})
		index[id] = set
	}
	set[key] = struct{}{}
}

func unlink(index map[string]map[EdgeKey]struct{}, id string, key EdgeKey) {
	set := index[id]
	delete(set, key)
	if len(set) == 0 {
		delete(index, id)
	}
}
