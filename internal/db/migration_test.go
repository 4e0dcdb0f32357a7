package db

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrationsFS = fstest.MapFS{
	"migrations/001_create_widgets.sql": {Data: []byte(`-- +up
CREATE TABLE widgets (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL DEFAULT 'a;b'
);
CREATE TABLE gadgets (id INTEGER PRIMARY KEY);

-- +down
DROP TABLE gadgets;
DROP TABLE widgets;
`)},
	"migrations/002_widget_index.sql": {Data: []byte(`-- +up
CREATE INDEX idx_widgets_name ON widgets(name);
-- +down
DROP INDEX idx_widgets_name;
`)},
	"migrations/README.md": {Data: []byte("not a migration")},
}

func openRaw(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func objectExists(t *testing.T, db *sql.DB, typ, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?", typ, name).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func TestRunMigrations(t *testing.T) {
	ctx := context.Background()
	db := openRaw(t)

	require.NoError(t, RunMigrationsForFS(ctx, db, testMigrationsFS))

	assert.True(t, objectExists(t, db, "table", "schema_migrations"))
	assert.True(t, objectExists(t, db, "table", "widgets"))
	assert.True(t, objectExists(t, db, "table", "gadgets"))
	assert.True(t, objectExists(t, db, "index", "idx_widgets_name"))

	versions, err := MigrationStatus(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "002"}, versions)
}

func TestRunMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openRaw(t)

	require.NoError(t, RunMigrationsForFS(ctx, db, testMigrationsFS))
	require.NoError(t, RunMigrationsForFS(ctx, db, testMigrationsFS))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = '001'").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMigrationStatus_BeforeMigrations(t *testing.T) {
	versions, err := MigrationStatus(context.Background(), openRaw(t))
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestEmbeddedMigrations(t *testing.T) {
	ctx := context.Background()
	db := openRaw(t)

	require.NoError(t, RunMigrations(ctx, db))
	for _, table := range []string{"runs", "issues", "parse_errors"} {
		assert.True(t, objectExists(t, db, "table", table), table)
	}

	// Every embedded migration can be rolled back.
	migrations, err := readMigrationsFromFS(migrationsFS)
	require.NoError(t, err)
	for range migrations {
		require.NoError(t, RollbackMigration(ctx, db))
	}
	assert.False(t, objectExists(t, db, "table", "runs"))
	assert.ErrorIs(t, RollbackMigration(ctx, db), ErrNoMigrations)
}

func TestRollbackMigration(t *testing.T) {
	ctx := context.Background()
	db := openRaw(t)
	require.NoError(t, RunMigrationsForFS(ctx, db, testMigrationsFS))

	require.NoError(t, RollbackMigrationForFS(ctx, db, testMigrationsFS))
	assert.False(t, objectExists(t, db, "index", "idx_widgets_name"))
	assert.True(t, objectExists(t, db, "table", "widgets"))

	versions, err := MigrationStatus(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"001"}, versions)

	require.NoError(t, RollbackMigrationForFS(ctx, db, testMigrationsFS))
	assert.False(t, objectExists(t, db, "table", "widgets"))
	assert.ErrorIs(t, RollbackMigrationForFS(ctx, db, testMigrationsFS), ErrNoMigrations)

	// Re-applying after a full rollback restores the schema.
	require.NoError(t, RunMigrationsForFS(ctx, db, testMigrationsFS))
	assert.True(t, objectExists(t, db, "index", "idx_widgets_name"))
}

func TestRunMigrations_InvalidFilename(t *testing.T) {
	fsys := fstest.MapFS{"migrations/initial.sql": {Data: []byte("-- +up\nSELECT 1;\n")}}
	err := RunMigrationsForFS(context.Background(), openRaw(t), fsys)
	assert.ErrorContains(t, err, "invalid migration filename")
}

func TestRunMigrations_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openRaw(t)
	fsys := fstest.MapFS{"migrations/001_broken.sql": {Data: []byte("-- +up\nCREATE TABLE ok (id INT);\nNOT SQL;\n")}}

	require.Error(t, RunMigrationsForFS(ctx, db, fsys))
	assert.False(t, objectExists(t, db, "table", "ok"))
	versions, err := MigrationStatus(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestSplitSQLStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:  "Simple statements",
			input: "CREATE TABLE t1 (id INT);\nCREATE TABLE t2 (id INT);",
			expected: []string{
				"CREATE TABLE t1 (id INT)",
				"CREATE TABLE t2 (id INT)",
			},
		},
		{
			name:  "Statement with string containing semicolon",
			input: `INSERT INTO t1 VALUES ('test;value'); CREATE TABLE t2 (id INT);`,
			expected: []string{
				`INSERT INTO t1 VALUES ('test;value')`,
				"CREATE TABLE t2 (id INT)",
			},
		},
		{
			name:  "Escaped quote inside string",
			input: `INSERT INTO t1 VALUES ('it\'s;fine'); SELECT 1;`,
			expected: []string{
				`INSERT INTO t1 VALUES ('it\'s;fine')`,
				"SELECT 1",
			},
		},
		{
			name:  "Statement with line comment",
			input: "-- This is a comment\nCREATE TABLE t1 (id INT);",
			expected: []string{
				"-- This is a comment\nCREATE TABLE t1 (id INT)",
			},
		},
		{
			name:  "Statement with block comment",
			input: "/* Multi\n   line\n   comment */\nCREATE TABLE t1 (id INT);",
			expected: []string{
				"/* Multi\n   line\n   comment */\nCREATE TABLE t1 (id INT)",
			},
		},
		{
			name:  "Multiple statements with various features",
			input: `CREATE TABLE users (
				id INT PRIMARY KEY,
				name TEXT DEFAULT 'John;Doe'
			);
			-- Create index
			CREATE INDEX idx_name ON users(name);
			/* Another table */
			CREATE TABLE posts (
				id INT,
				content TEXT
			);`,
			expected: []string{
				`CREATE TABLE users (
				id INT PRIMARY KEY,
				name TEXT DEFAULT 'John;Doe'
			)`,
				`-- Create index
			CREATE INDEX idx_name ON users(name)`,
				`/* Another table */
			CREATE TABLE posts (
				id INT,
				content TEXT
			)`,
			},
		},
		{
			name:     "Empty input",
			input:    "",
			expected: []string{},
		},
		{
			name:     "Only whitespace and comments",
			input:    "  \n-- comment\n  ",
			expected: []string{"-- comment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitSQLStatements(tt.input)
			if len(tt.expected) == 0 {
				assert.Empty(t, result)
				return
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseUpDownSections(t *testing.T) {
	migration := `-- Initial migration
-- +up
CREATE TABLE users (
    id INT PRIMARY KEY,
    name TEXT
);
CREATE INDEX idx_users_name ON users(name);

-- +down
DROP TABLE users;
`

	assert.Equal(t, `CREATE TABLE users (
    id INT PRIMARY KEY,
    name TEXT
);
CREATE INDEX idx_users_name ON users(name);
`, parseUpSection(migration))
	assert.Equal(t, "DROP TABLE users;\n", parseDownSection(migration))

	assert.Empty(t, parseDownSection("-- +up\nSELECT 1;\n"))
	assert.Empty(t, parseUpSection("SELECT 1;\n"))
}
