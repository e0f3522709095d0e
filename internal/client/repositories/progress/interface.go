package progress

import (
	"context"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
)

// Repository stores per-lesson watch progress. Entries are keyed by
// (courseID, lessonID); only the latest value matters, so there is no
// create/update distinction and no temporary id.
type Repository interface {
	// Upsert writes the current progress value for a lesson.
	Upsert(ctx context.Context, p *models.ProgressEntry) error

	// Get returns the entry for one lesson, or common.ErrNotFound.
	Get(ctx context.Context, courseID, lessonID string) (*models.ProgressEntry, error)

	// ListDirty returns entries with needs_sync set whose sync_attempts is
	// below maxAttempts, oldest first.
	ListDirty(ctx context.Context, maxAttempts int) ([]*models.ProgressEntry, error)

	// MarkSynced clears needs_sync when updated_at still equals snapshot;
	// returns false when a newer local value arrived in between.
	MarkSynced(ctx context.Context, courseID, lessonID string, snapshot time.Time) (bool, error)

	// BumpSyncAttempts increments the failed-attempt counter and returns
	// the new value.
	BumpSyncAttempts(ctx context.Context, courseID, lessonID string) (int, error)
}
