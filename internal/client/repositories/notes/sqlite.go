package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
	"github.com/learnkeeper/learnkeeper/internal/common"
	"github.com/learnkeeper/learnkeeper/internal/dbx"
)

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or
// *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const noteColumns = `id, course_id, lesson_id, title, content, tags, origin, needs_sync, sync_attempts, created_at, updated_at`

func scanNote(scan func(dest ...any) error) (*models.Note, error) {
	var (
		n                    models.Note
		createdAt, updatedAt string
	)
	if err := scan(&n.ID, &n.CourseID, &n.LessonID, &n.Title, &n.Content, &n.Tags,
		&n.Origin, &n.NeedsSync, &n.SyncAttempts, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if n.CreatedAt, err = dbx.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if n.UpdatedAt, err = dbx.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	return &n, nil
}

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, n *models.Note) error {
	query := `INSERT INTO notes (id, course_id, lesson_id, title, content, tags, origin, needs_sync, sync_attempts, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				course_id = excluded.course_id,
				lesson_id = excluded.lesson_id,
				title = excluded.title,
				content = excluded.content,
				tags = excluded.tags,
				origin = excluded.origin,
				needs_sync = excluded.needs_sync,
				sync_attempts = excluded.sync_attempts,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.CourseID, n.LessonID, n.Title, n.Content, n.Tags,
		n.Origin, n.NeedsSync, n.SyncAttempts,
		dbx.FormatTime(n.CreatedAt), dbx.FormatTime(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.Note, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

func (r *SQLiteRepository) ListDirty(ctx context.Context, maxAttempts int) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes
			WHERE needs_sync = 1 AND sync_attempts < ?
			ORDER BY updated_at`
	rows, err := r.db.QueryContext(ctx, query, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty notes: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

func collectNotes(rows *sql.Rows) ([]*models.Note, error) {
	var result []*models.Note
	for rows.Next() {
		n, err := scanNote(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ConfirmCreate(ctx context.Context, tempID, serverID string, snapshot time.Time) error {
	// The id swap is unconditional: the server now owns this record. The
	// dirty flag survives when the note changed after the snapshot was
	// taken, so the mid-sync edit reaches the server on the next pass as
	// an update.
	query := `UPDATE notes SET
				id = ?,
				origin = ?,
				needs_sync = CASE WHEN updated_at = ? THEN 0 ELSE needs_sync END,
				sync_attempts = 0
			WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		serverID, models.OriginServerSynced, dbx.FormatTime(snapshot), tempID)
	if err != nil {
		return fmt.Errorf("failed to confirm note create: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("confirm create %s: %w", tempID, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, snapshot time.Time) (bool, error) {
	query := `UPDATE notes SET needs_sync = 0, sync_attempts = 0
			WHERE id = ? AND updated_at = ?`
	res, err := r.db.ExecContext(ctx, query, id, dbx.FormatTime(snapshot))
	if err != nil {
		return false, fmt.Errorf("failed to mark note synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) BumpSyncAttempts(ctx context.Context, id string) (int, error) {
	_, err := r.db.ExecContext(ctx, `UPDATE notes SET sync_attempts = sync_attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to bump note sync attempts: %w", err)
	}
	var attempts int
	err = r.db.QueryRowContext(ctx, `SELECT sync_attempts FROM notes WHERE id = ?`, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read note sync attempts: %w", err)
	}
	return attempts, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}
