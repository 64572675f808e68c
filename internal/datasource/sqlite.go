package datasource

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// Schema is the layout SQLiteReader expects. x and y are optional seed
// positions.
const Schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id      TEXT PRIMARY KEY,
	type    TEXT,
	label   TEXT,
	caption TEXT,
	x       REAL,
	y       REAL
);
CREATE TABLE IF NOT EXISTS edges (
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	label  TEXT
);
`

// SQLiteReader provides read access to a graph database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadGraph reads every node and edge. Rows that fail to scan are skipped;
// the returned graph is not sanitized.
func (r *SQLiteReader) LoadGraph() (model.Graph, error) {
	var g model.Graph

	rows, err := r.db.Query(`SELECT id, type, label, caption, x, y FROM nodes ORDER BY rowid`)
	if err != nil {
		// Older files have no position columns.
		rows, err = r.db.Query(`SELECT id, type, label, caption, NULL, NULL FROM nodes ORDER BY rowid`)
		if err != nil {
			return g, fmt.Errorf("query nodes: %w", err)
		}
	}
	defer rows.Close()

	for rows.Next() {
		var n model.Node
		var typ, label, caption sql.NullString
		var x, y sql.NullFloat64
		if err := rows.Scan(&n.ID, &typ, &label, &caption, &x, &y); err != nil {
			continue
		}
		n.Type = model.DisplayType(typ.String)
		n.Label = label.String
		n.Caption = caption.String
		if x.Valid && y.Valid {
			n.Position = &model.Point{X: x.Float64, Y: y.Float64}
		}
		g.Nodes = append(g.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return g, fmt.Errorf("error iterating nodes: %w", err)
	}

	erows, err := r.db.Query(`SELECT source, target, label FROM edges ORDER BY rowid`)
	if err != nil {
		return g, fmt.Errorf("query edges: %w", err)
	}
	defer erows.Close()

	for erows.Next() {
		var e model.Edge
		var label sql.NullString
		if err := erows.Scan(&e.Source, &e.Target, &label); err != nil {
			continue
		}
		e.Label = label.String
		g.Edges = append(g.Edges, e)
	}
	if err := erows.Err(); err != nil {
		return g, fmt.Errorf("error iterating edges: %w", err)
	}

	return g, nil
}

// CountNodes returns the number of node rows
func (r *SQLiteReader) CountNodes() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// WriteGraph creates (or appends to) a database at path with g.
func WriteGraph(path string, g model.Graph) error {
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, n := range g.Nodes {
		var x, y any
		if n.Position != nil {
			x, y = n.Position.X, n.Position.Y
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO nodes (id, type, label, caption, x, y) VALUES (?, ?, ?, ?, ?, ?)`,
			n.ID, string(n.Type), n.Label, n.Caption, x, y); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	for _, e := range g.Edges {
		if _, err := tx.Exec(`INSERT INTO edges (source, target, label) VALUES (?, ?, ?)`,
			e.Source, e.Target, e.Label); err != nil {
			return fmt.Errorf("insert edge %s: %w", e.ID(), err)
		}
	}
	return tx.Commit()
}
