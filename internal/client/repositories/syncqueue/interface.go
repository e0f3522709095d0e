package syncqueue

import (
	"context"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
)

// Repository is the append-only log of pending side-effecting actions.
// Entries are replayed oldest first and removed exactly when the server
// confirms the action or the retry limit is reached.
type Repository interface {
	// Enqueue appends an entry and returns its assigned id.
	Enqueue(ctx context.Context, e *models.QueueEntry) (int64, error)

	// PeekAll returns every pending entry ordered by enqueued_at, with the
	// insertion id breaking ties.
	PeekAll(ctx context.Context) ([]*models.QueueEntry, error)

	// Remove deletes a processed entry.
	Remove(ctx context.Context, id int64) error

	// IncrementRetry bumps an entry's retry counter and returns the new
	// value.
	IncrementRetry(ctx context.Context, id int64) (int, error)

	// ExistsForRecord reports whether a pending entry of the given type
	// already references the local record. Used by the dirty sweep to
	// leave queued creations to the queue.
	ExistsForRecord(ctx context.Context, t models.QueueType, recordID string) (bool, error)

	// Len returns the number of pending entries.
	Len(ctx context.Context) (int, error)
}
