// Package db persists scan runs and their two output streams in SQLite.
// The schema lives in embedded migrations and is applied on open.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite handle of one results database.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the results database at path and brings the
// schema up to date. Use ":memory:" for an in-memory database.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// The pure-Go driver serialises writes itself; a single connection
	// avoids table-locked errors under concurrent writers.
	handle.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := handle.Exec(pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	db := &DB{DB: handle}

	migrations, err := migrationsDir()
	if err != nil {
		handle.Close()
		return nil, err
	}
	if err := db.MigrateUp(migrations); err != nil {
		handle.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return db, nil
}

// migrationsDir extracts the migrations subdirectory from the embedded
// filesystem, as the embed directive keeps the directory prefix.
func migrationsDir() (fs.FS, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create sub-filesystem for embedded migrations: %w", err)
	}
	return sub, nil
}
