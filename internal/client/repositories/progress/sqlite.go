package progress

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

const progressColumns = `course_id, lesson_id, progress, completed, needs_sync, sync_attempts, created_at, updated_at`

func scanEntry(scan func(dest ...any) error) (*models.ProgressEntry, error) {
	var (
		p                    models.ProgressEntry
		createdAt, updatedAt string
	)
	if err := scan(&p.CourseID, &p.LessonID, &p.Progress, &p.Completed,
		&p.NeedsSync, &p.SyncAttempts, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.CreatedAt, err = dbx.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if p.UpdatedAt, err = dbx.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	return &p, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.ProgressEntry) error {
	query := `INSERT INTO progress (course_id, lesson_id, progress, completed, needs_sync, sync_attempts, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(course_id, lesson_id) DO UPDATE SET
				progress = excluded.progress,
				completed = excluded.completed,
				needs_sync = excluded.needs_sync,
				sync_attempts = excluded.sync_attempts,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.CourseID, p.LessonID, p.Progress, p.Completed,
		p.NeedsSync, p.SyncAttempts,
		dbx.FormatTime(p.CreatedAt), dbx.FormatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, courseID, lessonID string) (*models.ProgressEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE course_id = ? AND lesson_id = ?`,
		courseID, lessonID)
	p, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListDirty(ctx context.Context, maxAttempts int) ([]*models.ProgressEntry, error) {
	query := `SELECT ` + progressColumns + ` FROM progress
			WHERE needs_sync = 1 AND sync_attempts < ?
			ORDER BY updated_at`
	rows, err := r.db.QueryContext(ctx, query, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty progress: %w", err)
	}
	defer rows.Close()

	var result []*models.ProgressEntry
	for rows.Next() {
		p, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, courseID, lessonID string, snapshot time.Time) (bool, error) {
	query := `UPDATE progress SET needs_sync = 0, sync_attempts = 0
			WHERE course_id = ? AND lesson_id = ? AND updated_at = ?`
	res, err := r.db.ExecContext(ctx, query, courseID, lessonID, dbx.FormatTime(snapshot))
	if err != nil {
		return false, fmt.Errorf("failed to mark progress synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) BumpSyncAttempts(ctx context.Context, courseID, lessonID string) (int, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE progress SET sync_attempts = sync_attempts + 1 WHERE course_id = ? AND lesson_id = ?`,
		courseID, lessonID)
	if err != nil {
		return 0, fmt.Errorf("failed to bump progress sync attempts: %w", err)
	}
	var attempts int
	err = r.db.QueryRowContext(ctx,
		`SELECT sync_attempts FROM progress WHERE course_id = ? AND lesson_id = ?`,
		courseID, lessonID).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read progress sync attempts: %w", err)
	}
	return attempts, nil
}
