package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/database"
	_ "github.com/openDAQ/openDAQ-sub004/migrations"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func repositories(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"sqlite": NewSQLiteRepository(openTestDB(t).DB),
		"memory": NewMemoryRepository(),
	}
}

func TestRepositoryLifecycle(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			s := &Snapshot{ID: "a1", Name: "dev", ClassName: "Device", Data: []byte(`{"x":1}`)}
			require.NoError(t, repo.Create(ctx, s))
			assert.False(t, s.CreatedAt.IsZero())

			assert.ErrorIs(t, repo.Create(ctx, &Snapshot{ID: "a1", Name: "other", Data: []byte(`{}`)}), ErrSnapshotExists)
			assert.ErrorIs(t, repo.Create(ctx, &Snapshot{ID: "a2", Name: "dev", Data: []byte(`{}`)}), ErrSnapshotExists)

			require.NoError(t, repo.Save(ctx, &Snapshot{ID: "a1", Name: "dev", ClassName: "Device", Data: []byte(`{"x":2}`), Frozen: true}))
			got, err := repo.Get(ctx, "a1")
			require.NoError(t, err)
			assert.Equal(t, `{"x":2}`, string(got.Data))
			assert.True(t, got.Frozen)
			assert.Equal(t, "Device", got.ClassName)

			require.NoError(t, repo.Save(ctx, &Snapshot{ID: "b1", Name: "aux", Data: []byte(`{}`)}))
			list, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "aux", list[0].Name)
			assert.Empty(t, list[0].ClassName)

			require.NoError(t, repo.Delete(ctx, "a1"))
			assert.ErrorIs(t, repo.Delete(ctx, "a1"), ErrSnapshotNotFound)
			_, err = repo.Get(ctx, "a1")
			assert.ErrorIs(t, err, ErrSnapshotNotFound)
		})
	}
}
