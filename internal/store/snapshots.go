package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rcaprobe/topocheck/internal/graph"
)

// SaveGraph stores g under name, replacing any snapshot with the same name
func (d *DB) SaveGraph(ctx context.Context, name string, g *graph.Graph) (Snapshot, error) {
	vertices := g.Vertices(graph.MatchAll())
	edges := g.AllEdges()

	snap := Snapshot{
		ID:          uuid.NewString(),
		Name:        name,
		CreatedAt:   time.Now().UnixMilli(),
		VertexCount: len(vertices),
		EdgeCount:   len(edges),
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteByName(ctx, tx, name); err != nil && !errors.Is(err, ErrNotFound) {
		return Snapshot{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, created_at, vertex_count, edge_count)
		VALUES (?, ?, ?, ?, ?)
	`, snap.ID, snap.Name, snap.CreatedAt, snap.VertexCount, snap.EdgeCount); err != nil {
		return Snapshot{}, fmt.Errorf("inserting snapshot: %w", err)
	}

	vstmt, err := tx.PrepareContext(ctx, `INSERT INTO vertices (snapshot_id, id, attributes) VALUES (?, ?, ?)`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("preparing vertex insert: %w", err)
	}
	defer vstmt.Close()
	for _, v := range vertices {
		attrs, err := encodeAttributes(v.Attributes)
		if err != nil {
			return Snapshot{}, err
		}
		if _, err := vstmt.ExecContext(ctx, snap.ID, v.ID, attrs); err != nil {
			return Snapshot{}, fmt.Errorf("inserting vertex %s: %w", v.ID, err)
		}
	}

	estmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (snapshot_id, source_id, target_id, label, attributes)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("preparing edge insert: %w", err)
	}
	defer estmt.Close()
	for _, e := range edges {
		attrs, err := encodeAttributes(e.Attributes)
		if err != nil {
			return Snapshot{}, err
		}
		if _, err := estmt.ExecContext(ctx, snap.ID, e.Source, e.Target, e.Label, attrs); err != nil {
			return Snapshot{}, fmt.Errorf("inserting edge %s->%s: %w", e.Source, e.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("committing snapshot: %w", err)
	}

	d.log.Info("saved snapshot",
		zap.String("name", name), zap.String("id", snap.ID),
		zap.Int("vertices", snap.VertexCount), zap.Int("edges", snap.EdgeCount))
	return snap, nil
}

// GetSnapshot returns the metadata of a named snapshot
func (d *DB) GetSnapshot(ctx context.Context, name string) (Snapshot, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT id, name, created_at, vertex_count, edge_count
		FROM snapshots WHERE name = ?
	`, name)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// LoadGraph rebuilds the graph stored under name
func (d *DB) LoadGraph(ctx context.Context, name string) (*graph.Graph, error) {
	snap, err := d.GetSnapshot(ctx, name)
	if err != nil {
		return nil, err
	}

	g := graph.New()

	vrows, err := d.conn.QueryContext(ctx, `SELECT id, attributes FROM vertices WHERE snapshot_id = ?`, snap.ID)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()
	for vrows.Next() {
		var id, raw string
		if err := vrows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		attrs, err := decodeAttributes(raw)
		if err != nil {
			return nil, fmt.Errorf("vertex %s: %w", id, err)
		}
		g.AddVertex(id, attrs)
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}
	// The pool holds one connection; release it before the next query
	vrows.Close()

	erows, err := d.conn.QueryContext(ctx, `
		SELECT source_id, target_id, label, attributes FROM edges WHERE snapshot_id = ?
	`, snap.ID)
	if err != nil {
		return nil, err
	}
	defer erows.Close()
	for erows.Next() {
		var src, dst, label, raw string
		if err := erows.Scan(&src, &dst, &label, &raw); err != nil {
			return nil, err
		}
		attrs, err := decodeAttributes(raw)
		if err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", src, dst, err)
		}
		g.AddEdge(src, dst, label, attrs)
	}
	if err := erows.Err(); err != nil {
		return nil, err
	}

	d.log.Debug("loaded snapshot", zap.String("name", name),
		zap.Int("vertices", g.NumVertices()), zap.Int("edges", g.NumEdges()))
	return g, nil
}

// List returns all snapshots, newest first
func (d *DB) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, name, created_at, vertex_count, edge_count
		FROM snapshots ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// Delete removes a named snapshot and its vertices and edges
func (d *DB) Delete(ctx context.Context, name string) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteByName(ctx, tx, name); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	d.log.Info("deleted snapshot", zap.String("name", name))
	return nil
}

func deleteByName(ctx context.Context, tx *sql.Tx, name string) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM snapshots WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM edges WHERE snapshot_id = ?`,
		`DELETE FROM vertices WHERE snapshot_id = ?`,
		`DELETE FROM snapshots WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("deleting snapshot %s: %w", name, err)
		}
	}
	return nil
}
