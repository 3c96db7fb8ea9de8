package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a named snapshot does not exist
var ErrNotFound = errors.New("snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	created_at   INTEGER NOT NULL,
	vertex_count INTEGER NOT NULL,
	edge_count   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS vertices (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	attributes  TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, id)
);
CREATE TABLE IF NOT EXISTS edges (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	source_id   TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	label       TEXT NOT NULL,
	attributes  TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, source_id, target_id, label)
);
CREATE INDEX IF NOT EXISTS edges_by_target ON edges (snapshot_id, target_id);
`

// DB wraps a SQLite database holding graph snapshots
type DB struct {
	conn *sql.DB
	log  *zap.Logger
	Path string
}

// OpenDB opens (creating if needed) a snapshot database with WAL mode and
// foreign keys enabled
func OpenDB(ctx context.Context, path string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// PRAGMAs are per connection; keep a single one so they stick
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("opened snapshot database", zap.String("path", path))
	return &DB{conn: conn, log: logger, Path: path}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}
