package civicpush_test

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"github.com/coregx/civicpush"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationDir(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite3"} {
		dir, err := civicpush.MigrationDir(driver)
		require.NoError(t, err)

		entries, err := fs.ReadDir(civicpush.MigrationFiles, dir)
		require.NoError(t, err, driver)
		assert.NotEmpty(t, entries, driver)
	}

	_, err := civicpush.MigrationDir("oracle")
	assert.Equal(t, civicpush.ErrCodeConfiguration, civicpush.CodeOf(err))
}

func TestApplyMigrations_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	require.NoError(t, civicpush.ApplyMigrations(ctx, db, "sqlite3"))
	require.NoError(t, civicpush.ApplyMigrations(ctx, db, "sqlite3"), "second run is a no-op")

	for _, table := range []string{"civicpush_device", "civicpush_message", "civicpush_push_activation"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestApplyMigrations_Errors(t *testing.T) {
	err := civicpush.ApplyMigrations(context.Background(), nil, "sqlite3")
	assert.Equal(t, civicpush.ErrCodeConfiguration, civicpush.CodeOf(err))

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	err = civicpush.ApplyMigrations(context.Background(), db, "oracle")
	assert.Equal(t, civicpush.ErrCodeConfiguration, civicpush.CodeOf(err))
}
