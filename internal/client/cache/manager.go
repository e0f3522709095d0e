// Package cache downloads course content for offline viewing and manages
// the local copies.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
	"github.com/learnkeeper/learnkeeper/internal/client/remote"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/content"
	"github.com/learnkeeper/learnkeeper/internal/logging"
)

const (
	fetchBaseDelay  = 500 * time.Millisecond
	fetchMaxRetries = 3
)

// ItemError records one lesson that could not be fully downloaded.
type ItemError struct {
	LessonID string
	Err      error
}

// DownloadResult summarizes one DownloadCourse run. A lesson counts as
// succeeded only when its metadata, video, and every attachment landed.
type DownloadResult struct {
	CourseID  string
	Succeeded int
	Failed    int
	Errors    []ItemError
}

// Manager fills and clears the offline content store.
type Manager struct {
	remote remote.Service
	repo   content.Repository
	logger logging.Logger
}

func NewManager(svc remote.Service, repo content.Repository, logger logging.Logger) *Manager {
	return &Manager{remote: svc, repo: repo, logger: logger}
}

// DownloadCourse fetches course metadata and then every lesson with its
// video and attachments. A failing lesson is recorded and skipped; the
// download continues with the next one, so a single broken video does not
// lose the rest of the course. The course row is written even when some
// lessons fail, which lets a later run fill the gaps.
func (m *Manager) DownloadCourse(ctx context.Context, courseID string) (*DownloadResult, error) {
	course, err := m.remote.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("fetching course %s: %w", courseID, err)
	}

	res := &DownloadResult{CourseID: courseID}

	for _, lessonID := range course.LessonIDs {
		if err := m.downloadLesson(ctx, lessonID); err != nil {
			m.logger.Warn(ctx, "lesson download failed", "lesson_id", lessonID, "error", err)
			res.Failed++
			res.Errors = append(res.Errors, ItemError{LessonID: lessonID, Err: err})
			continue
		}
		res.Succeeded++
	}

	now := time.Now()
	err = m.repo.SaveCourse(ctx, &models.Course{
		ID:           course.ID,
		Title:        course.Title,
		Description:  course.Description,
		LessonCount:  len(course.LessonIDs),
		CacheStatus:  models.CacheStatusCached,
		DownloadedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("saving course %s: %w", courseID, err)
	}

	m.logger.Info(ctx, "course download finished",
		"course_id", courseID, "succeeded", res.Succeeded, "failed", res.Failed)

	return res, nil
}

func (m *Manager) downloadLesson(ctx context.Context, lessonID string) error {
	lesson, err := m.remote.GetLesson(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("fetching lesson metadata: %w", err)
	}

	video, err := m.fetchWithRetry(ctx, lesson.VideoURL)
	if err != nil {
		return fmt.Errorf("downloading video: %w", err)
	}

	now := time.Now()
	err = m.repo.SaveLesson(ctx, &models.Lesson{
		ID:           lesson.ID,
		CourseID:     lesson.CourseID,
		Title:        lesson.Title,
		Position:     lesson.Position,
		Video:        video,
		CacheStatus:  models.CacheStatusCached,
		DownloadedAt: now,
	})
	if err != nil {
		return fmt.Errorf("saving lesson: %w", err)
	}

	for _, ref := range lesson.Files {
		body, err := m.fetchWithRetry(ctx, ref.URL)
		if err != nil {
			return fmt.Errorf("downloading file %s: %w", ref.Name, err)
		}
		err = m.repo.SaveFile(ctx, &models.CourseFile{
			ID:           ref.ID,
			LessonID:     lesson.ID,
			CourseID:     lesson.CourseID,
			Name:         ref.Name,
			Body:         body,
			CacheStatus:  models.CacheStatusCached,
			DownloadedAt: now,
		})
		if err != nil {
			return fmt.Errorf("saving file %s: %w", ref.Name, err)
		}
	}

	return nil
}

// fetchWithRetry pulls a media url, retrying transient failures with
// fibonacci backoff.
func (m *Manager) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var data []byte

	backoff := retry.WithMaxRetries(fetchMaxRetries, retry.NewFibonacci(fetchBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		data, err = m.remote.FetchBytes(ctx, url)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// IsOfflineAvailable reports whether the course was downloaded. It relies
// solely on the local store and works without connectivity.
func (m *Manager) IsOfflineAvailable(ctx context.Context, courseID string) (bool, error) {
	return m.repo.IsCourseCached(ctx, courseID)
}

// ClearOfflineData removes one course's cached content. Notes, progress,
// and pending uploads are untouched.
func (m *Manager) ClearOfflineData(ctx context.Context, courseID string) error {
	m.logger.Info(ctx, "clearing cached course", "course_id", courseID)
	return m.repo.DeleteCourseData(ctx, courseID)
}

// ClearAllOfflineData removes every cached course.
func (m *Manager) ClearAllOfflineData(ctx context.Context) error {
	m.logger.Info(ctx, "clearing all cached content")
	return m.repo.DeleteAll(ctx)
}
