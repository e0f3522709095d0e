package syncqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *SQLiteRepository) Enqueue(ctx context.Context, e *models.QueueEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_queue (type, action, record_id, data, enqueued_at, retry_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Type, e.Action, e.RecordID, e.Data, dbx.FormatTime(e.EnqueuedAt), e.RetryCount)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get entry id: %w", err)
	}
	e.ID = id
	return id, nil
}

func (r *SQLiteRepository) PeekAll(ctx context.Context) ([]*models.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, action, record_id, data, enqueued_at, retry_count
		 FROM sync_queue ORDER BY enqueued_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue entries: %w", err)
	}
	defer rows.Close()

	var result []*models.QueueEntry
	for rows.Next() {
		var (
			e          models.QueueEntry
			enqueuedAt string
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.Action, &e.RecordID, &e.Data, &enqueuedAt, &e.RetryCount); err != nil {
			return nil, err
		}
		if e.EnqueuedAt, err = dbx.ParseTime(enqueuedAt); err != nil {
			return nil, fmt.Errorf("bad enqueued_at: %w", err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove queue entry: %w", err)
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

func (r *SQLiteRepository) IncrementRetry(ctx context.Context, id int64) (int, error) {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET retry_count = retry_count + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to increment retry: %w", err)
	}
	var count int
	err = r.db.QueryRowContext(ctx, `SELECT retry_count FROM sync_queue WHERE id = ?`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read retry count: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) ExistsForRecord(ctx context.Context, t models.QueueType, recordID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE type = ? AND record_id = ?`, t, recordID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check queue for record: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Len(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return n, nil
}
