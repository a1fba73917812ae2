// Package store keeps entities in a local SQLite database in insertion order.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/msalah0e/orbit/internal/graph"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

// ErrEntityNotFound is returned when no entity has the requested id.
var ErrEntityNotFound = errors.New("entity not found")

// DB wraps a SQLite connection holding entities.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Put inserts or replaces an entity. A replaced entity keeps its position.
func (db *DB) Put(e graph.Entity) error {
	return put(db.conn, e)
}

// PutAll stores entities in one transaction, in order.
func (db *DB) PutAll(entities []graph.Entity) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entities {
		if err := put(tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func put(x execer, e graph.Entity) error {
	if e.ID == "" {
		return fmt.Errorf("entity id must not be empty")
	}
	links, err := json.Marshal(nonNil(e.ExplicitLinks))
	if err != nil {
		return fmt.Errorf("encoding links: %w", err)
	}
	_, err = x.Exec(`
		INSERT INTO entities (id, position, name, kind, description, links, updated_at)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM entities), ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			description = excluded.description,
			links = excluded.links,
			updated_at = excluded.updated_at`,
		e.ID, e.Name, string(e.Kind), e.Description, string(links), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("storing entity %s: %w", e.ID, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(s scanner) (graph.Entity, error) {
	var e graph.Entity
	var kind, links string
	if err := s.Scan(&e.ID, &e.Name, &kind, &e.Description, &links); err != nil {
		return e, err
	}
	e.Kind = graph.Kind(kind)
	if err := json.Unmarshal([]byte(links), &e.ExplicitLinks); err != nil {
		return e, fmt.Errorf("decoding links of %s: %w", e.ID, err)
	}
	if len(e.ExplicitLinks) == 0 {
		e.ExplicitLinks = nil
	}
	return e, nil
}

// Get returns the entity with the given id.
func (db *DB) Get(id string) (graph.Entity, error) {
	row := db.conn.QueryRow(
		`SELECT id, name, kind, description, links FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return graph.Entity{}, ErrEntityNotFound
	}
	if err != nil {
		return graph.Entity{}, fmt.Errorf("querying entity: %w", err)
	}
	return e, nil
}

// List returns all entities in insertion order.
func (db *DB) List() ([]graph.Entity, error) {
	return list(db.conn)
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func list(q querier) ([]graph.Entity, error) {
	rows, err := q.Query(
		`SELECT id, name, kind, description, links FROM entities ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var out []graph.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes an entity. Links pointing at it are left in place; the graph builder
// drops them.
func (db *DB) Delete(id string) error {
	res, err := db.conn.Exec(`DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEntityNotFound
	}
	return nil
}

// UpdateAllLinks merges keyword-derived links into every entity's explicit links in a
// single transaction and returns how many entities changed.
func (db *DB) UpdateAllLinks() (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	entities, err := list(tx)
	if err != nil {
		return 0, err
	}
	merged, changed := graph.MergeLinks(entities)
	if changed == 0 {
		return 0, nil
	}

	for i, e := range merged {
		if len(e.ExplicitLinks) == len(entities[i].ExplicitLinks) {
			continue
		}
		links, err := json.Marshal(nonNil(e.ExplicitLinks))
		if err != nil {
			return 0, fmt.Errorf("encoding links: %w", err)
		}
		if _, err := tx.Exec(`UPDATE entities SET links = ?, updated_at = ? WHERE id = ?`,
			string(links), time.Now().UnixMilli(), e.ID); err != nil {
			return 0, fmt.Errorf("updating links of %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing links: %w", err)
	}
	return changed, nil
}
