package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaVersions(t *testing.T, s *SQLiteStorage) []string {
	t.Helper()
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version")
	require.NoError(t, err)
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		require.NoError(t, rows.Scan(&v))
		versions = append(versions, v)
	}
	require.NoError(t, rows.Err())
	return versions
}

func TestApplyMigrations(t *testing.T) {
	storage := setupTestDB(t)
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, schemaVersions(t, storage))

	// Re-applying is a no-op
	require.NoError(t, ApplyMigrations(context.Background(), storage.db))
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, schemaVersions(t, storage))

	version, err := currentVersion(context.Background(), storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.String())
}

func TestRollbackMigration(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, storage.db))
	assert.Equal(t, []string{"1.0.0"}, schemaVersions(t, storage))

	require.NoError(t, RollbackMigration(ctx, storage.db))
	version, err := currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", version.String())

	assert.Error(t, RollbackMigration(ctx, storage.db))

	// Migrating up again restores the schema
	require.NoError(t, ApplyMigrations(ctx, storage.db))
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, schemaVersions(t, storage))
}

func TestBuildMode(t *testing.T) {
	assert.Contains(t, []string{"cgo", "purego"}, BuildMode)
	assert.NotEmpty(t, DriverName)
}
