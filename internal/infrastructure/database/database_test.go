package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "test.db"), WALMode: true, BusyTimeout: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func withMigrations(t *testing.T, files fstest.MapFS) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = files, "."
	t.Cleanup(func() { MigrationsFS, MigrationsDir = origFS, origDir })
}

func TestOpen(t *testing.T) {
	db := openTestDB(t)

	_, err := os.Stat(db.Path())
	require.NoError(t, err)
	require.NoError(t, db.HealthCheck(context.Background()))
	require.NoError(t, db.Close())
}

func TestMigrateAndRollback(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20260101_000000_first.up.sql":    {Data: []byte(`CREATE TABLE a (id TEXT PRIMARY KEY);`)},
		"20260101_000000_first.down.sql":  {Data: []byte(`DROP TABLE a;`)},
		"20260102_000000_second.up.sql":   {Data: []byte(`CREATE TABLE b (id TEXT PRIMARY KEY);`)},
		"20260102_000000_second.down.sql": {Data: []byte(`DROP TABLE b;`)},
		"notes.txt":                       {Data: []byte(`ignored`)},
	})
	ctx := context.Background()
	db := openTestDB(t)

	_, pending, err := db.MigrationStatus(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "first", pending[0].Name)

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))
	applied, pending, err := db.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 2)
	assert.Empty(t, pending)

	require.NoError(t, db.MigrateDown(ctx))
	var n int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='b'").Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, pending, err = db.MigrationStatus(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "20260102_000000", pending[0].Version)
}

func TestMigrateFailureKeepsEarlierMigrations(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20260101_000000_ok.up.sql":     {Data: []byte(`CREATE TABLE a (id TEXT);`)},
		"20260102_000000_broken.up.sql": {Data: []byte(`CREATE TABLE;`)},
	})
	ctx := context.Background()
	db := openTestDB(t)

	require.Error(t, db.Migrate(ctx))
	applied, pending, err := db.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 1)
	assert.Len(t, pending, 1)
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name    string
		version string
		isUp    bool
		ok      bool
	}{
		{"20260301_120000_object_snapshots.up.sql", "20260301_120000", true, true},
		{"20260301_120000_object_snapshots.down.sql", "20260301_120000", false, true},
		{"20260301_120000.up.sql", "20260301_120000", true, true},
		{"20260301.up.sql", "", false, false},
		{"20260301_120000_x.sql", "", false, false},
		{"embed.go", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.isUp, isUp)
		})
	}
	assert.Equal(t, "object_snapshots", extractMigrationName("20260301_120000_object_snapshots.up.sql"))
}
