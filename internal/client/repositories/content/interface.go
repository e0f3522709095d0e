package content

import (
	"context"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
)

// Repository stores downloaded course content: course metadata, lessons
// with their video bytes, and lesson attachments. Content is a read cache
// only; nothing in these collections ever syncs back to the server, and
// clearing them never touches the mutation collections.
type Repository interface {
	SaveCourse(ctx context.Context, c *models.Course) error
	SaveLesson(ctx context.Context, l *models.Lesson) error
	SaveFile(ctx context.Context, f *models.CourseFile) error

	// GetCourse returns cached course metadata, or common.ErrNotFound.
	GetCourse(ctx context.Context, id string) (*models.Course, error)

	// GetLesson returns one cached lesson, or common.ErrNotFound.
	GetLesson(ctx context.Context, id string) (*models.Lesson, error)

	// ListLessons returns the cached lessons of a course in position order.
	ListLessons(ctx context.Context, courseID string) ([]*models.Lesson, error)

	// ListFiles returns the cached attachments of a lesson.
	ListFiles(ctx context.Context, lessonID string) ([]*models.CourseFile, error)

	// IsCourseCached reports whether course metadata is present and marked
	// cached. It never goes to the network.
	IsCourseCached(ctx context.Context, courseID string) (bool, error)

	// DeleteCourseData removes the course row and every lesson and file
	// belonging to it.
	DeleteCourseData(ctx context.Context, courseID string) error

	// DeleteAll clears every content collection.
	DeleteAll(ctx context.Context) error
}
