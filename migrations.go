package civicpush

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// MigrationFiles contains the SQL schema for every supported driver, one
// directory per driver name: migrations/mysql, migrations/postgres and
// migrations/sqlite3. Each file has a "-- +migrate Up" and a
// "-- +migrate Down" section, so the files also work with tools such as
// sql-migrate or goose.
//
// Example with an external tool:
//
//	source, _ := fs.Sub(civicpush.MigrationFiles, "migrations/postgres")
//
//go:embed migrations/*/*.sql
var MigrationFiles embed.FS

// MigrationDir returns the directory of MigrationFiles holding the schema
// for driverName.
func MigrationDir(driverName string) (string, error) {
	switch driverName {
	case "mysql", "postgres", "sqlite3":
		return path.Join("migrations", driverName), nil
	default:
		return "", NewError(ErrCodeConfiguration, fmt.Sprintf("unsupported database driver: %s", driverName))
	}
}

// ApplyMigrations runs the Up section of every embedded migration for
// driverName, in file name order. The schema uses IF NOT EXISTS throughout,
// so applying it to an initialized database is a no-op.
func ApplyMigrations(ctx context.Context, db *sql.DB, driverName string) error {
	if db == nil {
		return NewError(ErrCodeConfiguration, "sql db is required")
	}

	dir, err := MigrationDir(driverName)
	if err != nil {
		return err
	}

	entries, err := fs.ReadDir(MigrationFiles, dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(MigrationFiles, path.Join(dir, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		for _, stmt := range splitStatements(extractUpMigration(string(content))) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return NewErrorWithCause(ErrCodeDatabase, fmt.Sprintf("exec migration %s", file), err)
			}
		}
	}

	return nil
}

// extractUpMigration returns the SQL in the -- +migrate Up section.
func extractUpMigration(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return content[upIdx+len("-- +migrate Up"):]
	}
	return content[upIdx+len("-- +migrate Up") : downIdx]
}

// splitStatements splits on semicolons ending a line. The MySQL driver
// rejects multi-statement Exec by default.
func splitStatements(sqlText string) []string {
	var stmts []string
	for _, part := range strings.Split(sqlText, ";\n") {
		stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";"))
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
