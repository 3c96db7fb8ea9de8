package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rcaprobe/topocheck/internal/graph"
)

// setupTestDB opens a fresh snapshot database in a temp dir
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenDB(context.Background(), filepath.Join(t.TempDir(), "snapshots.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleGraph() *graph.Graph {
	g := graph.New()
	g.AddVertex("h1", graph.Attributes{
		"type":       graph.String("nova.host"),
		"category":   graph.String("RESOURCE"),
		"is_deleted": graph.Bool(false),
		"cpus":       graph.Int(8),
	})
	g.AddVertex("i1", graph.Attributes{"type": graph.String("nova.instance")})
	g.AddEdge("h1", "i1", "contains", graph.Attributes{"weight": graph.Number(0.5)})
	g.AddEdge("h1", "i1", "attached", nil)
	g.AddEdge("alarm", "h1", "on", nil)
	return g
}

func TestSaveAndLoadGraph(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	g := sampleGraph()

	snap, err := d.SaveGraph(ctx, "baseline", g)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 2, snap.VertexCount)
	assert.Equal(t, 3, snap.EdgeCount)

	loaded, err := d.LoadGraph(ctx, "baseline")
	require.NoError(t, err)

	assert.Equal(t, g.VertexIDs(), loaded.VertexIDs())
	assert.Equal(t, g.NumEdges(), loaded.NumEdges())

	host, ok := loaded.Vertex("h1")
	require.True(t, ok)
	want, _ := g.Vertex("h1")
	assert.True(t, want.Attributes.Equal(host.Attributes), "got %v", host.Attributes)

	edges := loaded.OutEdges("h1")
	require.Len(t, edges, 2)
	assert.Equal(t, "attached", edges[0].Label)
	assert.True(t, edges[1].Attributes["weight"].Equal(graph.Number(0.5)))

	assert.Len(t, loaded.Edges("alarm"), 1, "dangling edges survive a round trip")
	assert.False(t, loaded.HasVertex("alarm"))
}

func TestSaveGraph_ReplacesByName(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	_, err := d.SaveGraph(ctx, "topology", sampleGraph())
	require.NoError(t, err)

	smaller := graph.New()
	smaller.AddVertex("only", nil)
	_, err = d.SaveGraph(ctx, "topology", smaller)
	require.NoError(t, err)

	loaded, err := d.LoadGraph(ctx, "topology")
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, loaded.VertexIDs())
	assert.Equal(t, 0, loaded.NumEdges())

	snaps, err := d.List(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)

	var rows int
	require.NoError(t, d.Conn().QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&rows))
	assert.Equal(t, 0, rows, "replaced snapshot edges should be gone")
}

func TestListAndDelete(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		_, err := d.SaveGraph(ctx, name, sampleGraph())
		require.NoError(t, err)
	}

	snaps, err := d.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	require.NoError(t, d.Delete(ctx, "a"))
	_, err = d.LoadGraph(ctx, "a")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	err = d.Delete(ctx, "a")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	snaps, err = d.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "b", snaps[0].Name)
}

func TestSaveGraph_Empty(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	_, err := d.SaveGraph(ctx, "empty", graph.New())
	require.NoError(t, err)

	loaded, err := d.LoadGraph(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.NumVertices())
}

func TestDecodeAttributes_Invalid(t *testing.T) {
	_, err := decodeAttributes(`{"k": null}`)
	assert.Error(t, err)
}
