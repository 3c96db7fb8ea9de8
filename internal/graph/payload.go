package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"
)

// Shape names the two payload layouts the loader understands
type Shape string

const (
	ShapeFlat Shape = "flat"
	ShapeTree Shape = "tree"
)

const (
	childrenKey = "children"
	sourceKey   = "source"
	targetKey   = "target"
)

// LoadOptions controls how payload fields map onto vertex IDs and edge labels
type LoadOptions struct {
	IDKey         string // explicit vertex id attribute
	FallbackIDKey string // consulted when IDKey is missing
	LabelKey      string // link attribute holding the edge label
	TreeLabel     string // label for parent -> child edges
	Logger        *zap.Logger
}

// DefaultLoadOptions matches the payloads produced by the RCA service
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		IDKey:         "vitrage_id",
		FallbackIDKey: "id",
		LabelKey:      "relationship_type",
		TreeLabel:     "contains",
	}
}

func (o LoadOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o LoadOptions) explicitID(attrs Attributes) (string, bool) {
	for _, key := range []string{o.IDKey, o.FallbackIDKey} {
		if key == "" {
			continue
		}
		if v, ok := attrs[key]; ok {
			return v.String(), true
		}
	}
	return "", false
}

// FlatGraph is the "nodes and links" serialization
type FlatGraph struct {
	Nodes []map[string]interface{} `json:"nodes"`
	Links []map[string]interface{} `json:"links"`
}

// FromFlat builds a graph from parallel node and link lists. A node is keyed
// by its explicit id attribute or, failing that, by its position. Link
// endpoints may be positions into Nodes or vertex IDs.
func FromFlat(flat FlatGraph, opts LoadOptions) *Graph {
	log := opts.logger()
	g := New()

	nodeAttrs := make([]Attributes, len(flat.Nodes))
	taken := make(map[string]bool)
	for i, node := range flat.Nodes {
		nodeAttrs[i] = AttributesFrom(node)
		if id, ok := opts.explicitID(nodeAttrs[i]); ok {
			taken[id] = true
		}
	}

	ids := make([]string, len(flat.Nodes))
	for i, attrs := range nodeAttrs {
		id, ok := opts.explicitID(attrs)
		if !ok {
			id = syntheticID(i, taken)
		}
		ids[i] = id
		g.AddVertex(id, attrs)
	}

	for i, l := range flat.Links {
		src, srcOK := resolveEndpoint(l[sourceKey], ids)
		dst, dstOK := resolveEndpoint(l[targetKey], ids)
		if !srcOK || !dstOK {
			log.Debug("link endpoint does not resolve to a node",
				zap.Int("link", i), zap.String("source", src), zap.String("target", dst))
		}

		attrs := make(Attributes, len(l))
		for k, raw := range l {
			if k == sourceKey || k == targetKey {
				continue
			}
			if v, ok := FromAny(raw); ok {
				attrs[k] = v
			}
		}
		label := ""
		if v, ok := attrs[opts.LabelKey]; ok {
			label = v.String()
		}
		g.AddEdge(src, dst, label, attrs)
	}

	log.Debug("built graph from flat payload",
		zap.Int("nodes", len(flat.Nodes)), zap.Int("links", len(flat.Links)),
		zap.Int("vertices", g.NumVertices()), zap.Int("edges", g.NumEdges()))
	return g
}

// resolveEndpoint maps a link endpoint onto a vertex ID. ok is false when an
// index falls outside the node list; the raw value is still returned so the
// edge can be kept.
func resolveEndpoint(raw interface{}, ids []string) (string, bool) {
	v, present := FromAny(raw)
	if !present {
		return "", false
	}
	if n, isNum := v.Num(); isNum {
		idx := int(n)
		if float64(idx) == n && idx >= 0 && idx < len(ids) {
			return ids[idx], true
		}
		return v.String(), false
	}
	return v.String(), true
}

// syntheticID names a node that has no explicit ID after its position. The
// plain decimal form is used unless an explicit ID already claims it, in which
// case the position gets a "#" prefix (and a suffix if that is taken too).
// The chosen ID is recorded in taken.
func syntheticID(pos int, taken map[string]bool) string {
	id := strconv.Itoa(pos)
	if taken[id] {
		id = "#" + id
		for n := 1; taken[id]; n++ {
			id = fmt.Sprintf("#%d.%d", pos, n)
		}
	}
	taken[id] = true
	return id
}

// FromTree builds a graph from a nested payload where each node lists its
// children under "children". It returns the graph and the number of nodes
// visited. The payload is only read, never modified.
func FromTree(root map[string]interface{}, opts LoadOptions) (*Graph, int) {
	g := New()
	if root == nil {
		return g, 0
	}
	b := &treeBuilder{g: g, opts: opts, log: opts.logger(), taken: make(map[string]bool)}
	b.collectIDs(root)
	b.visit(root, "", false)

	b.log.Debug("built graph from tree payload",
		zap.Int("nodes", b.count), zap.Int("vertices", g.NumVertices()), zap.Int("edges", g.NumEdges()))
	return g, b.count
}

type treeBuilder struct {
	g     *Graph
	opts  LoadOptions
	log   *zap.Logger
	count int
	taken map[string]bool // explicit IDs anywhere in the tree
}

func (b *treeBuilder) collectIDs(node map[string]interface{}) {
	attrs, children := splitChildren(node)
	if id, ok := b.opts.explicitID(attrs); ok {
		b.taken[id] = true
	}
	for _, raw := range children {
		if child, ok := raw.(map[string]interface{}); ok {
			b.collectIDs(child)
		}
	}
}

func (b *treeBuilder) visit(node map[string]interface{}, parentID string, hasParent bool) {
	attrs, children := splitChildren(node)

	id, ok := b.opts.explicitID(attrs)
	if !ok {
		id = syntheticID(b.count, b.taken)
	}
	b.count++

	b.g.AddVertex(id, attrs)
	if hasParent {
		b.g.AddEdge(parentID, id, b.opts.TreeLabel, nil)
	}

	for i, raw := range children {
		child, ok := raw.(map[string]interface{})
		if !ok {
			b.log.Debug("skipping non-object child", zap.String("parent", id), zap.Int("index", i))
			continue
		}
		b.visit(child, id, true)
	}
}

// splitChildren separates a tree node into its own attributes and its
// children list without touching the input map.
func splitChildren(node map[string]interface{}) (Attributes, []interface{}) {
	attrs := make(Attributes, len(node))
	var children []interface{}
	for k, raw := range node {
		if k == childrenKey {
			children, _ = raw.([]interface{})
			continue
		}
		if v, ok := FromAny(raw); ok {
			attrs[k] = v
		}
	}
	return attrs, children
}

// Decode reads a JSON document and builds a graph from it. An object with a
// "nodes" array is treated as a flat payload, anything else as a tree.
func Decode(r io.Reader, opts LoadOptions) (*Graph, Shape, error) {
	doc, err := decodeObject(r)
	if err != nil {
		return nil, "", err
	}
	if _, ok := doc["nodes"].([]interface{}); ok {
		return FromFlat(flatFromObject(doc), opts), ShapeFlat, nil
	}
	g, _ := FromTree(doc, opts)
	return g, ShapeTree, nil
}

// DecodeFlat reads a flat payload
func DecodeFlat(r io.Reader, opts LoadOptions) (*Graph, error) {
	doc, err := decodeObject(r)
	if err != nil {
		return nil, err
	}
	return FromFlat(flatFromObject(doc), opts), nil
}

// DecodeTree reads a tree payload
func DecodeTree(r io.Reader, opts LoadOptions) (*Graph, int, error) {
	doc, err := decodeObject(r)
	if err != nil {
		return nil, 0, err
	}
	g, n := FromTree(doc, opts)
	return g, n, nil
}

func decodeObject(r io.Reader) (map[string]interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing payload JSON: %w", err)
	}
	return doc, nil
}

func flatFromObject(doc map[string]interface{}) FlatGraph {
	return FlatGraph{
		Nodes: objects(doc["nodes"]),
		Links: objects(doc["links"]),
	}
}

func objects(raw interface{}) []map[string]interface{} {
	list, _ := raw.([]interface{})
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		} else {
			// keep positions stable for index-based links
			out = append(out, map[string]interface{}{})
		}
	}
	return out
}

// ToFlat serializes g as a flat payload. Nodes are sorted by ID and carry
// their ID under opts.IDKey; links reference vertices by ID.
func ToFlat(g *Graph, opts LoadOptions) FlatGraph {
	flat := FlatGraph{
		Nodes: []map[string]interface{}{},
		Links: []map[string]interface{}{},
	}
	for _, v := range g.Vertices(MatchAll()) {
		node := make(map[string]interface{}, len(v.Attributes)+1)
		for k, val := range v.Attributes {
			node[k] = val
		}
		if _, ok := opts.explicitID(v.Attributes); !ok && opts.IDKey != "" {
			node[opts.IDKey] = String(v.ID)
		}
		flat.Nodes = append(flat.Nodes, node)
	}
	for _, e := range g.AllEdges() {
		link := make(map[string]interface{}, len(e.Attributes)+3)
		for k, val := range e.Attributes {
			link[k] = val
		}
		link[sourceKey] = e.Source
		link[targetKey] = e.Target
		if opts.LabelKey != "" {
			link[opts.LabelKey] = e.Label
		}
		flat.Links = append(flat.Links, link)
	}
	return flat
}
