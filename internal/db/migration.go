package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/newhook/harvest/internal/logging"
	"github.com/newhook/harvest/internal/signal"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNoMigrations is returned by RollbackMigration when nothing is applied.
var ErrNoMigrations = errors.New("no migrations to rollback")

// Migration is one numbered SQL file with its up and down sections.
type Migration struct {
	Version string
	Name    string
	UpSQL   string
	DownSQL string
}

// RunMigrations applies all pending migrations embedded in the binary.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return RunMigrationsForFS(ctx, db, migrationsFS)
}

// RunMigrationsForFS applies all pending migrations found in fsys, in version
// order. Each migration runs in its own transaction with signals blocked.
func RunMigrationsForFS(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if err := createMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	migrations, err := readMigrationsFromFS(fsys)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	log := logging.WithGroup("migrations")
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		log.Info("applying migration", "version", m.Version, "name", m.Name)
		err := signal.Guarded(func() error {
			return applyMigration(ctx, db, m)
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
		}
	}

	return nil
}

// RollbackMigration rolls back the last applied migration.
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	return RollbackMigrationForFS(ctx, db, migrationsFS)
}

// RollbackMigrationForFS rolls back the last applied migration using the down
// section of the matching file in fsys.
func RollbackMigrationForFS(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	var version string
	err := db.QueryRowContext(ctx, `
		SELECT version FROM schema_migrations
		ORDER BY version DESC
		LIMIT 1
	`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoMigrations
	}
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	migrations, err := readMigrationsFromFS(fsys)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	idx := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == version })
	if idx < 0 {
		return fmt.Errorf("migration %s not found", version)
	}
	migration := migrations[idx]
	if strings.TrimSpace(migration.DownSQL) == "" {
		return fmt.Errorf("migration %s has no down script", version)
	}

	logging.WithGroup("migrations").Info("rolling back migration", "version", migration.Version, "name", migration.Name)
	return signal.Guarded(func() error {
		return execInTx(ctx, db, migration.DownSQL, "DELETE FROM schema_migrations WHERE version = ?", version)
	})
}

func createMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func getAppliedMigrations(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func readMigrationsFromFS(fsys fs.FS) ([]Migration, error) {
	var migrations []Migration

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		// Version and name come from the file name, e.g. "001_initial.sql".
		filename := path.Base(p)
		parts := strings.SplitN(strings.TrimSuffix(filename, ".sql"), "_", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid migration filename: %s", filename)
		}

		migration := Migration{
			Version: parts[0],
			Name:    parts[1],
			UpSQL:   parseUpSection(string(content)),
			DownSQL: parseDownSection(string(content)),
		}
		migrations = append(migrations, migration)
		return nil
	})

	if err != nil {
		return nil, err
	}

	slices.SortFunc(migrations, func(a, b Migration) int {
		return strings.Compare(a.Version, b.Version)
	})

	return migrations, nil
}

const (
	upMarker   = "-- +up"
	downMarker = "-- +down"
)

func parseUpSection(content string) string {
	return section(content, upMarker, downMarker)
}

func parseDownSection(content string) string {
	return section(content, downMarker, "")
}

// section returns the lines after the start marker line, up to the stop
// marker line or the end of content.
func section(content, start, stop string) string {
	var out []string
	inside := false
	for line := range strings.SplitSeq(content, "\n") {
		marker := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(marker, start):
			inside = true
			continue
		case stop != "" && strings.HasPrefix(marker, stop):
			if inside {
				return strings.Join(out, "\n")
			}
			continue
		}
		if inside {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	return execInTx(ctx, db, m.UpSQL, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version)
}

// execInTx runs every statement of script followed by the bookkeeping
// statement, all in one transaction.
func execInTx(ctx context.Context, db *sql.DB, script, record string, version string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitSQLStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, record, version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", version, err)
	}

	return tx.Commit()
}

// splitSQLStatements splits a script on semicolons that are outside string
// literals and comments. Statements are trimmed; empty ones are dropped.
func splitSQLStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	var stringChar rune
	inLineComment := false
	inBlockComment := false

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		char := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		// Handle line comments
		if !inString && !inBlockComment && char == '-' && next == '-' {
			inLineComment = true
			current.WriteRune(char)
			continue
		}
		if inLineComment {
			current.WriteRune(char)
			if char == '\n' {
				inLineComment = false
			}
			continue
		}

		// Handle block comments
		if !inString && !inLineComment && char == '/' && next == '*' {
			inBlockComment = true
			current.WriteRune(char)
			continue
		}
		if inBlockComment {
			current.WriteRune(char)
			if char == '*' && next == '/' {
				current.WriteRune(next)
				i++ // Skip the next character
				inBlockComment = false
			}
			continue
		}

		// Handle strings
		if !inLineComment && !inBlockComment {
			if !inString && (char == '\'' || char == '"' || char == '`') {
				inString = true
				stringChar = char
			} else if inString && char == stringChar {
				// Check if it's escaped
				escaped := false
				for j := i - 1; j >= 0 && runes[j] == '\\'; j-- {
					escaped = !escaped
				}
				if !escaped {
					inString = false
				}
			}
		}

		// Handle statement separator
		if !inString && !inLineComment && !inBlockComment && char == ';' {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteRune(char)
	}

	// Add any remaining statement
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// MigrationStatus returns the applied migration versions in order.
func MigrationStatus(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}

	return versions, rows.Err()
}
