package submissions

import (
	"context"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
)

// Repository stores assignment submissions. Offline-created submissions
// carry a temporary id until the queued create action is confirmed.
type Repository interface {
	CreateOrUpdate(ctx context.Context, s *models.Submission) error

	// GetByID returns a submission, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Submission, error)

	// ListDirty returns dirty submissions below the attempt limit, oldest
	// first.
	ListDirty(ctx context.Context, maxAttempts int) ([]*models.Submission, error)

	// ConfirmCreate swaps the temporary id for the server one; see
	// notes.Repository for the snapshot semantics.
	ConfirmCreate(ctx context.Context, tempID, serverID string, snapshot time.Time) error

	// MarkSynced clears needs_sync when updated_at still equals snapshot.
	MarkSynced(ctx context.Context, id string, snapshot time.Time) (bool, error)

	BumpSyncAttempts(ctx context.Context, id string) (int, error)
}
