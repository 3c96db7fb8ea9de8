package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var valueComparer = cmp.Comparer(func(a, b Value) bool { return a.Equal(b) })

const threeCategoryPayload = `{
  "directed": true,
  "nodes": [
    {"type": "host", "category": "RESOURCE", "is_deleted": false},
    {"type": "instance", "category": "RESOURCE", "is_deleted": false},
    {"type": "instance", "category": "RESOURCE", "is_deleted": false}
  ],
  "links": [
    {"source": 0, "target": 1, "relationship_type": "contains"},
    {"source": 0, "target": 2, "relationship_type": "contains"}
  ]
}`

func TestFromFlat_ThreeCategoryScenario(t *testing.T) {
	g, shape, err := Decode(strings.NewReader(threeCategoryPayload), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shape != ShapeFlat {
		t.Errorf("expected flat shape, got %s", shape)
	}

	if got := len(g.Vertices(Match(Attributes{"type": String("instance")}))); got != 2 {
		t.Errorf("expected 2 instances, got %d", got)
	}
	hosts := g.Vertices(Match(Attributes{"type": String("host")}))
	if len(hosts) != 1 {
		t.Fatalf("expected 1 host, got %d", len(hosts))
	}
	if got := len(g.Edges(hosts[0].ID)); got != 2 {
		t.Errorf("expected 2 host edges, got %d", got)
	}
	if g.NumVertices() != 3 || g.NumEdges() != 2 {
		t.Errorf("expected 3 vertices and 2 edges, got %d and %d", g.NumVertices(), g.NumEdges())
	}
}

func TestFromFlat_NoMatch(t *testing.T) {
	g, _, err := Decode(strings.NewReader(threeCategoryPayload), DefaultLoadOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Vertices(Match(Attributes{"category": String("ALARM")})); len(got) != 0 {
		t.Errorf("expected no ALARM vertices, got %v", got)
	}
}

func TestFromFlat_ExplicitIDsAndLinkAttributes(t *testing.T) {
	flat := FlatGraph{
		Nodes: []map[string]interface{}{
			{"vitrage_id": "host-1", "type": "nova.host"},
			{"id": "vm-1", "type": "nova.instance"},
			{"type": "nova.instance", "state": nil},
		},
		Links: []map[string]interface{}{
			{"source": 0, "target": 1, "relationship_type": "contains", "is_deleted": false, "key": 0},
			{"source": "host-1", "target": 2.0, "relationship_type": "contains"},
			{"source": 0, "target": 1, "relationship_type": "attached"},
			{"source": 0, "target": 1, "relationship_type": "contains", "key": 1},
		},
	}
	g := FromFlat(flat, DefaultLoadOptions())

	if got := g.VertexIDs(); fmt.Sprint(got) != "[2 host-1 vm-1]" {
		t.Errorf("unexpected vertex IDs: %v", got)
	}
	if g.NumEdges() != 3 {
		t.Errorf("expected 3 edges after (source, target, label) dedup, got %d", g.NumEdges())
	}

	v, _ := g.Vertex("2")
	if _, ok := v.Attributes["state"]; ok {
		t.Errorf("null attributes should be dropped, got %v", v.Attributes)
	}

	want := []Edge{
		{EdgeKey{"host-1", "2", "contains"}, Attributes{"relationship_type": String("contains")}},
		{EdgeKey{"host-1", "vm-1", "attached"}, Attributes{"relationship_type": String("attached")}},
		{EdgeKey{"host-1", "vm-1", "contains"}, Attributes{"relationship_type": String("contains"), "key": Int(1)}},
	}
	if diff := cmp.Diff(want, g.AllEdges(), valueComparer); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestFromFlat_DanglingLinkKept(t *testing.T) {
	flat := FlatGraph{
		Nodes: []map[string]interface{}{{"type": "a"}},
		Links: []map[string]interface{}{{"source": 0, "target": 7, "relationship_type": "on"}},
	}
	g := FromFlat(flat, DefaultLoadOptions())
	if g.NumEdges() != 1 {
		t.Fatalf("dangling edge should be retained, got %d edges", g.NumEdges())
	}
	if g.HasVertex("7") {
		t.Error("dangling endpoint must not become a vertex")
	}
	if len(g.Edges("7")) != 1 {
		t.Error("edge should be indexed under its unresolved endpoint")
	}
}

func TestFromFlat_SyntheticIDDoesNotCollide(t *testing.T) {
	flat := FlatGraph{
		Nodes: []map[string]interface{}{
			{"id": "1", "type": "host"},
			{"type": "instance"},
		},
		Links: []map[string]interface{}{{"source": 0, "target": 1, "relationship_type": "contains"}},
	}
	g := FromFlat(flat, DefaultLoadOptions())

	if g.NumVertices() != 2 {
		t.Fatalf("expected 2 vertices, got %d: %v", g.NumVertices(), g.VertexIDs())
	}
	host, ok := g.Vertex("1")
	if !ok || !host.Attributes["type"].Equal(String("host")) {
		t.Errorf("explicit vertex 1 should keep its attributes, got %v", host.Attributes)
	}
	want := []Edge{{EdgeKey{"1", "#1", "contains"}, Attributes{"relationship_type": String("contains")}}}
	if diff := cmp.Diff(want, g.AllEdges(), valueComparer); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestFromTree_SyntheticIDDoesNotCollide(t *testing.T) {
	root := map[string]interface{}{
		"name": "root",
		"children": []interface{}{
			map[string]interface{}{"id": "2", "children": []interface{}{
				map[string]interface{}{"name": "leaf"},
			}},
			map[string]interface{}{"id": "#2"},
			map[string]interface{}{"id": "0"},
		},
	}
	g, n := FromTree(root, DefaultLoadOptions())
	if n != 5 || g.NumVertices() != 5 || g.NumEdges() != 4 {
		t.Fatalf("expected 5 nodes, 5 vertices and 4 edges, got n=%d vertices=%d edges=%d ids=%v",
			n, g.NumVertices(), g.NumEdges(), g.VertexIDs())
	}
	if got := fmt.Sprint(g.VertexIDs()); got != "[#0 #2 #2.1 0 2]" {
		t.Errorf("unexpected vertex IDs: %s", got)
	}
	for _, e := range g.AllEdges() {
		if e.Source == e.Target {
			t.Errorf("parent -> child edge became a self-loop: %v", e.EdgeKey)
		}
	}
}

// buildTree generates a tree with n nodes where node i's parent is (i-1)/fanout
func buildTree(n, fanout int) map[string]interface{} {
	nodes := make([]map[string]interface{}, n)
	for i := range nodes {
		nodes[i] = map[string]interface{}{"name": fmt.Sprintf("n%d", i), "level": i}
	}
	for i := 1; i < n; i++ {
		p := nodes[(i-1)/fanout]
		children, _ := p["children"].([]interface{})
		p["children"] = append(children, nodes[i])
	}
	return nodes[0]
}

func TestFromTree_RoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 7, 40} {
		root := buildTree(n, 3)
		g, consumed := FromTree(root, DefaultLoadOptions())
		if consumed != n {
			t.Errorf("n=%d: consumed %d", n, consumed)
		}
		if g.NumVertices() != n {
			t.Errorf("n=%d: expected %d vertices, got %d", n, n, g.NumVertices())
		}
		if g.NumEdges() != n-1 {
			t.Errorf("n=%d: expected %d edges, got %d", n, n-1, g.NumEdges())
		}
		if len(g.InEdges("0")) != 0 {
			t.Errorf("n=%d: root should have no incoming edge", n)
		}
	}
}

func TestFromTree_DoesNotMutateInput(t *testing.T) {
	root := buildTree(5, 2)
	before, _ := json.Marshal(root)

	g, _ := FromTree(root, DefaultLoadOptions())
	after, _ := json.Marshal(root)
	if !bytes.Equal(before, after) {
		t.Errorf("payload changed:\nbefore %s\nafter  %s", before, after)
	}

	v, _ := g.Vertex("0")
	if _, ok := v.Attributes["children"]; ok {
		t.Error("children must not be stored as an attribute")
	}
	if _, ok := root["children"]; !ok {
		t.Error("children key removed from the caller's payload")
	}
}

func TestFromTree_ExplicitIDsAndLabel(t *testing.T) {
	doc := `{
	  "vitrage_id": "root", "category": "RESOURCE", "type": "openstack.cluster",
	  "children": [
	    {"vitrage_id": "zone", "type": "nova.zone", "children": [
	      {"vitrage_id": "host", "type": "nova.host"}
	    ]}
	  ]
	}`
	opts := DefaultLoadOptions()
	opts.TreeLabel = "parent_of"
	g, n, err := DecodeTree(strings.NewReader(doc), opts)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 nodes, got %d", n)
	}

	want := []Edge{
		{EdgeKey{"root", "zone", "parent_of"}, Attributes{}},
		{EdgeKey{"zone", "host", "parent_of"}, Attributes{}},
	}
	if diff := cmp.Diff(want, g.AllEdges(), valueComparer); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}

	wantRoot := Attributes{
		"vitrage_id": String("root"),
		"category":   String("RESOURCE"),
		"type":       String("openstack.cluster"),
	}
	root, _ := g.Vertex("root")
	if diff := cmp.Diff(wantRoot, root.Attributes, valueComparer); diff != "" {
		t.Errorf("root attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestFromTree_TruncatedPayload(t *testing.T) {
	// depth-3 tree cut to depth 2 by the producer: root, 2 children, no grandchildren
	doc := `{"name": "root", "children": [{"name": "a", "children": []}, {"name": "b"}]}`
	g, shape, err := Decode(strings.NewReader(doc), DefaultLoadOptions())
	if err != nil {
		t.Fatal(err)
	}
	if shape != ShapeTree {
		t.Errorf("expected tree shape, got %s", shape)
	}
	if g.NumVertices() != 3 || g.NumEdges() != 2 {
		t.Errorf("expected 3 vertices and 2 edges, got %d and %d", g.NumVertices(), g.NumEdges())
	}
}

func TestFromTree_SkipsMalformedChildren(t *testing.T) {
	root := map[string]interface{}{
		"name":     "root",
		"children": []interface{}{"oops", map[string]interface{}{"name": "ok"}, nil},
	}
	g, n := FromTree(root, DefaultLoadOptions())
	if n != 2 || g.NumVertices() != 2 || g.NumEdges() != 1 {
		t.Errorf("expected 2 nodes and 1 edge, got n=%d vertices=%d edges=%d", n, g.NumVertices(), g.NumEdges())
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	if _, _, err := Decode(strings.NewReader("{nope"), DefaultLoadOptions()); err == nil {
		t.Error("expected parse error")
	}
	if _, err := DecodeFlat(strings.NewReader("[]"), DefaultLoadOptions()); err == nil {
		t.Error("a JSON array is not a payload")
	}
}

func TestToFlat_RoundTrip(t *testing.T) {
	g, _, err := Decode(strings.NewReader(threeCategoryPayload), DefaultLoadOptions())
	if err != nil {
		t.Fatal(err)
	}
	g.AddEdge("1", "ghost", "on", Attributes{"weight": Number(0.5)})

	opts := DefaultLoadOptions()
	data, err := json.Marshal(ToFlat(g, opts))
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeFlat(bytes.NewReader(data), opts)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(g.VertexIDs(), back.VertexIDs()); diff != "" {
		t.Errorf("vertex IDs mismatch (-want +got):\n%s", diff)
	}
	var wantKeys, gotKeys []EdgeKey
	for _, e := range g.AllEdges() {
		wantKeys = append(wantKeys, e.EdgeKey)
	}
	for _, e := range back.AllEdges() {
		gotKeys = append(gotKeys, e.EdgeKey)
	}
	if diff := cmp.Diff(wantKeys, gotKeys); diff != "" {
		t.Errorf("edge keys mismatch (-want +got):\n%s", diff)
	}
	if got := back.CountVertices(Match(Attributes{"type": String("instance")})); got != 2 {
		t.Errorf("expected 2 instances after round trip, got %d", got)
	}
}
