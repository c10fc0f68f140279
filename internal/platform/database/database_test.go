package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")

	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "migrations are idempotent")

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM domains`))
	assert.Zero(t, count)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Contains(t, sqliteDSN("file:x.db"), "file:x.db?_pragma=foreign_keys(1)")
	assert.Contains(t, sqliteDSN("file:x.db?mode=rwc"), "file:x.db?mode=rwc&_pragma")
}
