package quizresults

import (
	"context"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
)

// Repository stores quiz attempts. The server grades an attempt when it is
// submitted, so confirming a create also writes the authoritative score.
type Repository interface {
	CreateOrUpdate(ctx context.Context, q *models.QuizResult) error

	// GetByID returns a quiz result, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.QuizResult, error)

	// ListDirty returns dirty results below the attempt limit, oldest
	// first.
	ListDirty(ctx context.Context, maxAttempts int) ([]*models.QuizResult, error)

	// ConfirmCreate swaps the temporary id for the server one and stores
	// the server-graded score; see notes.Repository for the snapshot
	// semantics.
	ConfirmCreate(ctx context.Context, tempID, serverID string, score float64, snapshot time.Time) error

	// MarkSynced clears needs_sync when updated_at still equals snapshot.
	MarkSynced(ctx context.Context, id string, snapshot time.Time) (bool, error)

	BumpSyncAttempts(ctx context.Context, id string) (int, error)
}
