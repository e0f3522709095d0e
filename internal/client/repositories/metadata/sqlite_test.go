package metadata_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/learnkeeper/learnkeeper/internal/client/repositories/metadata"
	"github.com/learnkeeper/learnkeeper/internal/client/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T) *metadata.SQLiteRepository {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return metadata.NewSQLiteRepository(db)
}

func TestSetGet_OverwriteAndMissing(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	got, err := r.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.Set(ctx, metadata.KeyDeviceID, []byte("dev-1")))
	require.NoError(t, r.Set(ctx, metadata.KeyDeviceID, []byte("dev-2")))

	got, err = r.Get(ctx, metadata.KeyDeviceID)
	require.NoError(t, err)
	assert.Equal(t, []byte("dev-2"), got)
}

func TestDeleteAndClear(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte("1")))
	require.NoError(t, r.Set(ctx, "b", []byte("2")))

	require.NoError(t, r.Delete(ctx, "a"))
	got, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.Clear(ctx))
	got, err = r.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, got)
}
