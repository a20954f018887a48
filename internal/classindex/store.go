package classindex

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const createClassesTable = `
CREATE TABLE IF NOT EXISTS classes (
    fqcn        TEXT PRIMARY KEY,
    simple_name TEXT NOT NULL,
    package     TEXT NOT NULL,
    origin      TEXT NOT NULL
)`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS index_metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`

var classIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_classes_simple_name ON classes(simple_name)`,
	`CREATE INDEX IF NOT EXISTS idx_classes_package ON classes(package)`,
}

// Store persists the class table in SQLite so a new session can answer
// searches before the first rebuild finishes.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the class database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: stable.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ddl := range append([]string{createClassesTable, createMetadataTable}, classIndexes...) {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return tx.Commit()
}

// ReplaceAll swaps the stored classes for classes in one transaction.
func (s *Store) ReplaceAll(classes []Class) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := sq.Delete("classes").RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("failed to clear classes: %w", err)
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO classes (fqcn, simple_name, package, origin) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range classes {
		if _, err := stmt.Exec(c.FQCN, c.SimpleName(), c.Package(), c.Origin); err != nil {
			return fmt.Errorf("failed to insert class %s: %w", c.FQCN, err)
		}
	}

	_, err = sq.Insert("index_metadata").
		Options("OR REPLACE").
		Columns("key", "value").
		Values("built_at", time.Now().UTC().Format(time.RFC3339)).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// All returns every stored class ordered by name.
func (s *Store) All() ([]Class, error) {
	rows, err := sq.Select("fqcn", "origin").
		From("classes").
		OrderBy("fqcn").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	var out []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.FQCN, &c.Origin); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// BuiltAt returns when the table was last replaced.
func (s *Store) BuiltAt() (time.Time, bool) {
	var value string
	err := sq.Select("value").
		From("index_metadata").
		Where(sq.Eq{"key": "built_at"}).
		RunWith(s.db).
		QueryRow().
		Scan(&value)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	return t, err == nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
