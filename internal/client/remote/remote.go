// Package remote defines the client-side view of the learning server API.
package remote

import (
	"context"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
)

// QuizGrade is the server's grading response for a submitted quiz.
type QuizGrade struct {
	ResultID string  `json:"result_id"`
	Score    float64 `json:"score"`
}

// FileRef points at a downloadable course attachment.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CoursePayload is the course metadata returned by the server.
type CoursePayload struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	LessonIDs   []string `json:"lesson_ids"`
}

// LessonPayload is the lesson metadata returned by the server. Video and
// attachment bytes are fetched separately via FetchBytes.
type LessonPayload struct {
	ID       string    `json:"id"`
	CourseID string    `json:"course_id"`
	Title    string    `json:"title"`
	Position int       `json:"position"`
	VideoURL string    `json:"video_url"`
	Files    []FileRef `json:"files"`
}

// Service is everything the client needs from the server. Implementations
// must be safe for concurrent use.
type Service interface {
	// Ping reports whether the server is reachable.
	Ping(ctx context.Context) error

	// CreateNote uploads a locally created note and returns the id the
	// server assigned to it.
	CreateNote(ctx context.Context, note *models.Note) (string, error)

	// UpdateNote uploads changes to a note the server already knows about.
	UpdateNote(ctx context.Context, note *models.Note) error

	// UpdateProgress uploads the current progress value for a lesson.
	UpdateProgress(ctx context.Context, entry *models.ProgressEntry) error

	// SubmitAssignment uploads an assignment submission and returns the
	// server-assigned submission id.
	SubmitAssignment(ctx context.Context, sub *models.Submission) (string, error)

	// SubmitQuiz uploads quiz answers and returns the server's grade.
	SubmitQuiz(ctx context.Context, result *models.QuizResult) (QuizGrade, error)

	// GetCourse fetches course metadata.
	GetCourse(ctx context.Context, courseID string) (*CoursePayload, error)

	// GetLesson fetches lesson metadata.
	GetLesson(ctx context.Context, lessonID string) (*LessonPayload, error)

	// FetchBytes downloads a media or attachment URL in full.
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}
