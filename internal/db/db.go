// Package db stores the history of harvest runs in SQLite: one row per parsed
// (source, tool) pair, with the issues and error-log entries it produced.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/newhook/harvest/internal/logging"
)

// DB wraps the SQLite database connection.
type DB struct {
	*sql.DB
}

// OpenPath initializes the database at the specified path and runs migrations.
// The path ":memory:" opens a private in-memory database.
func OpenPath(ctx context.Context, dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps an in-memory
	// database alive for the lifetime of the handle.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logging.Debug("opened history database", "path", dbPath)
	return &DB{DB: db}, nil
}
