package submissions

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

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const submissionColumns = `id, assignment_id, content, attachment_name, origin, needs_sync, sync_attempts, created_at, updated_at`

func scanSubmission(scan func(dest ...any) error) (*models.Submission, error) {
	var (
		s                    models.Submission
		createdAt, updatedAt string
	)
	if err := scan(&s.ID, &s.AssignmentID, &s.Content, &s.AttachmentName,
		&s.Origin, &s.NeedsSync, &s.SyncAttempts, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if s.CreatedAt, err = dbx.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if s.UpdatedAt, err = dbx.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, s *models.Submission) error {
	query := `INSERT INTO submissions (id, assignment_id, content, attachment_name, origin, needs_sync, sync_attempts, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				assignment_id = excluded.assignment_id,
				content = excluded.content,
				attachment_name = excluded.attachment_name,
				origin = excluded.origin,
				needs_sync = excluded.needs_sync,
				sync_attempts = excluded.sync_attempts,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.AssignmentID, s.Content, s.AttachmentName,
		s.Origin, s.NeedsSync, s.SyncAttempts,
		dbx.FormatTime(s.CreatedAt), dbx.FormatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert submission: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	s, err := scanSubmission(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListDirty(ctx context.Context, maxAttempts int) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
			WHERE needs_sync = 1 AND sync_attempts < ?
			ORDER BY updated_at`
	rows, err := r.db.QueryContext(ctx, query, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty submissions: %w", err)
	}
	defer rows.Close()

	var result []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ConfirmCreate(ctx context.Context, tempID, serverID string, snapshot time.Time) error {
	query := `UPDATE submissions SET
				id = ?,
				origin = ?,
				needs_sync = CASE WHEN updated_at = ? THEN 0 ELSE needs_sync END,
				sync_attempts = 0
			WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		serverID, models.OriginServerSynced, dbx.FormatTime(snapshot), tempID)
	if err != nil {
		return fmt.Errorf("failed to confirm submission create: %w", err)
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
	res, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET needs_sync = 0, sync_attempts = 0 WHERE id = ? AND updated_at = ?`,
		id, dbx.FormatTime(snapshot))
	if err != nil {
		return false, fmt.Errorf("failed to mark submission synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) BumpSyncAttempts(ctx context.Context, id string) (int, error) {
	_, err := r.db.ExecContext(ctx, `UPDATE submissions SET sync_attempts = sync_attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to bump submission sync attempts: %w", err)
	}
	var attempts int
	err = r.db.QueryRowContext(ctx, `SELECT sync_attempts FROM submissions WHERE id = ?`, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read submission sync attempts: %w", err)
	}
	return attempts, nil
}
