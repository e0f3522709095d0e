package quizresults

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

const quizResultColumns = `id, quiz_id, answers, score, origin, needs_sync, sync_attempts, created_at, updated_at`

func scanResult(scan func(dest ...any) error) (*models.QuizResult, error) {
	var (
		q                    models.QuizResult
		createdAt, updatedAt string
	)
	if err := scan(&q.ID, &q.QuizID, &q.Answers, &q.Score,
		&q.Origin, &q.NeedsSync, &q.SyncAttempts, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if q.CreatedAt, err = dbx.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if q.UpdatedAt, err = dbx.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	return &q, nil
}

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, q *models.QuizResult) error {
	query := `INSERT INTO quiz_results (id, quiz_id, answers, score, origin, needs_sync, sync_attempts, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				quiz_id = excluded.quiz_id,
				answers = excluded.answers,
				score = excluded.score,
				origin = excluded.origin,
				needs_sync = excluded.needs_sync,
				sync_attempts = excluded.sync_attempts,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		q.ID, q.QuizID, q.Answers, q.Score,
		q.Origin, q.NeedsSync, q.SyncAttempts,
		dbx.FormatTime(q.CreatedAt), dbx.FormatTime(q.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert quiz result: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.QuizResult, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+quizResultColumns+` FROM quiz_results WHERE id = ?`, id)
	q, err := scanResult(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz result: %w", err)
	}
	return q, nil
}

func (r *SQLiteRepository) ListDirty(ctx context.Context, maxAttempts int) ([]*models.QuizResult, error) {
	query := `SELECT ` + quizResultColumns + ` FROM quiz_results
			WHERE needs_sync = 1 AND sync_attempts < ?
			ORDER BY updated_at`
	rows, err := r.db.QueryContext(ctx, query, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty quiz results: %w", err)
	}
	defer rows.Close()

	var result []*models.QuizResult
	for rows.Next() {
		q, err := scanResult(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ConfirmCreate(ctx context.Context, tempID, serverID string, score float64, snapshot time.Time) error {
	query := `UPDATE quiz_results SET
				id = ?,
				score = ?,
				origin = ?,
				needs_sync = CASE WHEN updated_at = ? THEN 0 ELSE needs_sync END,
				sync_attempts = 0
			WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		serverID, score, models.OriginServerSynced, dbx.FormatTime(snapshot), tempID)
	if err != nil {
		return fmt.Errorf("failed to confirm quiz result create: %w", err)
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
		`UPDATE quiz_results SET needs_sync = 0, sync_attempts = 0 WHERE id = ? AND updated_at = ?`,
		id, dbx.FormatTime(snapshot))
	if err != nil {
		return false, fmt.Errorf("failed to mark quiz result synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) BumpSyncAttempts(ctx context.Context, id string) (int, error) {
	_, err := r.db.ExecContext(ctx, `UPDATE quiz_results SET sync_attempts = sync_attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to bump quiz result sync attempts: %w", err)
	}
	var attempts int
	err = r.db.QueryRowContext(ctx, `SELECT sync_attempts FROM quiz_results WHERE id = ?`, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quiz result sync attempts: %w", err)
	}
	return attempts, nil
}
