package content_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/content"
	"github.com/learnkeeper/learnkeeper/internal/client/store"
	"github.com/learnkeeper/learnkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedCourse(t *testing.T, r content.Repository, courseID string, lessonIDs ...string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.SaveCourse(ctx, &models.Course{
		ID: courseID, Title: "Go Basics", LessonCount: len(lessonIDs),
		CacheStatus: models.CacheStatusCached, DownloadedAt: now,
	}))
	for i, id := range lessonIDs {
		require.NoError(t, r.SaveLesson(ctx, &models.Lesson{
			ID: id, CourseID: courseID, Title: "Lesson", Position: i,
			Video: []byte{0xde, 0xad}, CacheStatus: models.CacheStatusCached, DownloadedAt: now,
		}))
	}
}

func TestIsCourseCached(t *testing.T) {
	db := setupDB(t)
	r := content.NewSQLiteRepository(db)
	ctx := context.Background()

	ok, err := r.IsCourseCached(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)

	seedCourse(t, r, "c1", "l1")

	ok, err = r.IsCourseCached(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListLessons_PositionOrder(t *testing.T) {
	db := setupDB(t)
	r := content.NewSQLiteRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{"l3", "l1", "l2"} {
		require.NoError(t, r.SaveLesson(ctx, &models.Lesson{
			ID: id, CourseID: "c1", Title: "L", Position: 2 - i,
			CacheStatus: models.CacheStatusCached, DownloadedAt: now,
		}))
	}

	got, err := r.ListLessons(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "l2", got[0].ID)
	assert.Equal(t, "l1", got[1].ID)
	assert.Equal(t, "l3", got[2].ID)
}

func TestDeleteCourseData_RemovesOnlyThatCourse(t *testing.T) {
	db := setupDB(t)
	r := content.NewSQLiteRepository(db)
	ctx := context.Background()

	seedCourse(t, r, "c1", "l1", "l2")
	seedCourse(t, r, "c2", "l3")
	require.NoError(t, r.SaveFile(ctx, &models.CourseFile{
		ID: "f1", LessonID: "l1", CourseID: "c1", Name: "slides.pdf",
		Body: []byte("pdf"), CacheStatus: models.CacheStatusCached, DownloadedAt: time.Now().UTC(),
	}))

	require.NoError(t, r.DeleteCourseData(ctx, "c1"))

	_, err := r.GetCourse(ctx, "c1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	files, err := r.ListFiles(ctx, "l1")
	require.NoError(t, err)
	assert.Empty(t, files)

	ok, err := r.IsCourseCached(ctx, "c2")
	require.NoError(t, err)
	assert.True(t, ok, "other courses must survive")
}

func TestDeleteAll(t *testing.T) {
	db := setupDB(t)
	r := content.NewSQLiteRepository(db)
	ctx := context.Background()

	seedCourse(t, r, "c1", "l1")
	seedCourse(t, r, "c2", "l2")

	require.NoError(t, r.DeleteAll(ctx))

	for _, id := range []string{"c1", "c2"} {
		ok, err := r.IsCourseCached(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}
