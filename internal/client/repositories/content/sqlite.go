package content

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

func (r *SQLiteRepository) SaveCourse(ctx context.Context, c *models.Course) error {
	query := `INSERT INTO courses (id, title, description, lesson_count, cache_status, downloaded_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				lesson_count = excluded.lesson_count,
				cache_status = excluded.cache_status,
				downloaded_at = excluded.downloaded_at
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Title, c.Description, c.LessonCount, c.CacheStatus, dbx.FormatTime(c.DownloadedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert course: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SaveLesson(ctx context.Context, l *models.Lesson) error {
	query := `INSERT INTO lessons (id, course_id, title, position, video, cache_status, downloaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				course_id = excluded.course_id,
				title = excluded.title,
				position = excluded.position,
				video = excluded.video,
				cache_status = excluded.cache_status,
				downloaded_at = excluded.downloaded_at
	`
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.CourseID, l.Title, l.Position, l.Video, l.CacheStatus, dbx.FormatTime(l.DownloadedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert lesson: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SaveFile(ctx context.Context, f *models.CourseFile) error {
	query := `INSERT INTO files (id, lesson_id, course_id, name, body, cache_status, downloaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				lesson_id = excluded.lesson_id,
				course_id = excluded.course_id,
				name = excluded.name,
				body = excluded.body,
				cache_status = excluded.cache_status,
				downloaded_at = excluded.downloaded_at
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.LessonID, f.CourseID, f.Name, f.Body, f.CacheStatus, dbx.FormatTime(f.DownloadedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, lesson_count, cache_status, downloaded_at FROM courses WHERE id = ?`, id)

	var (
		c            models.Course
		downloadedAt string
	)
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.LessonCount, &c.CacheStatus, &downloadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if c.DownloadedAt, err = dbx.ParseTime(downloadedAt); err != nil {
		return nil, fmt.Errorf("bad downloaded_at: %w", err)
	}
	return &c, nil
}

func scanLesson(scan func(dest ...any) error) (*models.Lesson, error) {
	var (
		l            models.Lesson
		downloadedAt string
	)
	if err := scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.Video, &l.CacheStatus, &downloadedAt); err != nil {
		return nil, err
	}
	var err error
	if l.DownloadedAt, err = dbx.ParseTime(downloadedAt); err != nil {
		return nil, fmt.Errorf("bad downloaded_at: %w", err)
	}
	return &l, nil
}

func (r *SQLiteRepository) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, course_id, title, position, video, cache_status, downloaded_at FROM lessons WHERE id = ?`, id)
	l, err := scanLesson(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return l, nil
}

func (r *SQLiteRepository) ListLessons(ctx context.Context, courseID string) ([]*models.Lesson, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, course_id, title, position, video, cache_status, downloaded_at
		 FROM lessons WHERE course_id = ? ORDER BY position`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to select lessons: %w", err)
	}
	defer rows.Close()

	var result []*models.Lesson
	for rows.Next() {
		l, err := scanLesson(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ListFiles(ctx context.Context, lessonID string) ([]*models.CourseFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, lesson_id, course_id, name, body, cache_status, downloaded_at
		 FROM files WHERE lesson_id = ? ORDER BY name`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.CourseFile
	for rows.Next() {
		var (
			f            models.CourseFile
			downloadedAt string
		)
		if err := rows.Scan(&f.ID, &f.LessonID, &f.CourseID, &f.Name, &f.Body, &f.CacheStatus, &downloadedAt); err != nil {
			return nil, err
		}
		if f.DownloadedAt, err = dbx.ParseTime(downloadedAt); err != nil {
			return nil, fmt.Errorf("bad downloaded_at: %w", err)
		}
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) IsCourseCached(ctx context.Context, courseID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM courses WHERE id = ? AND cache_status = ?`,
		courseID, models.CacheStatusCached).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check course cache: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) DeleteCourseData(ctx context.Context, courseID string) error {
	for _, q := range []string{
		`DELETE FROM files WHERE course_id = ?`,
		`DELETE FROM lessons WHERE course_id = ?`,
		`DELETE FROM courses WHERE id = ?`,
	} {
		if _, err := r.db.ExecContext(ctx, q, courseID); err != nil {
			return fmt.Errorf("failed to clear course data: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	for _, q := range []string{
		`DELETE FROM files`,
		`DELETE FROM lessons`,
		`DELETE FROM courses`,
	} {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to clear content: %w", err)
		}
	}
	return nil
}
