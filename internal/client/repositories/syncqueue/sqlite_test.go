package syncqueue_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/syncqueue"
	"github.com/learnkeeper/learnkeeper/internal/client/store"
	"github.com/learnkeeper/learnkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func entryAt(ts time.Time, recordID string) *models.QueueEntry {
	return &models.QueueEntry{
		Type:       models.QueueTypeSubmission,
		Action:     models.QueueActionCreate,
		RecordID:   recordID,
		Data:       `{"assignment_id":"hw-1"}`,
		EnqueuedAt: ts,
	}
}

func TestEnqueue_PeekAll_FIFOOrder(t *testing.T) {
	db := setupDB(t)
	r := syncqueue.NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)

	// Enqueued out of wall-clock order on purpose.
	_, err := r.Enqueue(ctx, entryAt(base.Add(2*time.Second), "offline_c"))
	require.NoError(t, err)
	_, err = r.Enqueue(ctx, entryAt(base, "offline_a"))
	require.NoError(t, err)
	_, err = r.Enqueue(ctx, entryAt(base.Add(time.Second), "offline_b"))
	require.NoError(t, err)

	got, err := r.PeekAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "offline_a", got[0].RecordID)
	assert.Equal(t, "offline_b", got[1].RecordID)
	assert.Equal(t, "offline_c", got[2].RecordID)
}

func TestPeekAll_InsertionOrderBreaksTies(t *testing.T) {
	db := setupDB(t)
	r := syncqueue.NewSQLiteRepository(db)
	ctx := context.Background()

	ts := time.Now().UTC().Truncate(time.Second)
	for _, rec := range []string{"offline_1", "offline_2", "offline_3"} {
		_, err := r.Enqueue(ctx, entryAt(ts, rec))
		require.NoError(t, err)
	}

	got, err := r.PeekAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, rec := range []string{"offline_1", "offline_2", "offline_3"} {
		assert.Equal(t, rec, got[i].RecordID)
	}
}

func TestRemove(t *testing.T) {
	db := setupDB(t)
	r := syncqueue.NewSQLiteRepository(db)
	ctx := context.Background()

	id, err := r.Enqueue(ctx, entryAt(time.Now().UTC(), "offline_a"))
	require.NoError(t, err)

	require.NoError(t, r.Remove(ctx, id))
	assert.ErrorIs(t, r.Remove(ctx, id), common.ErrNotFound)

	n, err := r.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIncrementRetry(t *testing.T) {
	db := setupDB(t)
	r := syncqueue.NewSQLiteRepository(db)
	ctx := context.Background()

	id, err := r.Enqueue(ctx, entryAt(time.Now().UTC(), "offline_a"))
	require.NoError(t, err)

	for want := 1; want <= 3; want++ {
		got, err := r.IncrementRetry(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = r.IncrementRetry(ctx, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExistsForRecord(t *testing.T) {
	db := setupDB(t)
	r := syncqueue.NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := r.Enqueue(ctx, entryAt(time.Now().UTC(), "offline_sub"))
	require.NoError(t, err)

	ok, err := r.ExistsForRecord(ctx, models.QueueTypeSubmission, "offline_sub")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.ExistsForRecord(ctx, models.QueueTypeQuizResult, "offline_sub")
	require.NoError(t, err)
	assert.False(t, ok, "type must match")

	ok, err = r.ExistsForRecord(ctx, models.QueueTypeSubmission, "offline_other")
	require.NoError(t, err)
	assert.False(t, ok)
}
