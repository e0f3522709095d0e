package notes

import (
	"context"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
)

// Repository describes storage operations for notes. Implementations are
// backed by the local SQLite database.
type Repository interface {
	// CreateOrUpdate upserts a note by id.
	CreateOrUpdate(ctx context.Context, n *models.Note) error

	// GetByID returns a note, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Note, error)

	// GetAll lists all notes ordered by creation time.
	GetAll(ctx context.Context) ([]*models.Note, error)

	// ListDirty returns notes with needs_sync set whose sync_attempts is
	// still below maxAttempts, oldest first.
	ListDirty(ctx context.Context, maxAttempts int) ([]*models.Note, error)

	// ConfirmCreate replaces a temporary id with the server-assigned one.
	// needs_sync is cleared only when updated_at still equals snapshot; a
	// note edited mid-sync keeps its dirty flag under the new id.
	ConfirmCreate(ctx context.Context, tempID, serverID string, snapshot time.Time) error

	// MarkSynced clears needs_sync if updated_at still equals snapshot.
	// Returns false when a concurrent edit kept the note dirty.
	MarkSynced(ctx context.Context, id string, snapshot time.Time) (bool, error)

	// BumpSyncAttempts increments the failed-attempt counter and returns
	// the new value.
	BumpSyncAttempts(ctx context.Context, id string) (int, error)

	// DeleteByID removes a note.
	DeleteByID(ctx context.Context, id string) error
}
