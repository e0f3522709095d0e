package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
	"github.com/learnkeeper/learnkeeper/internal/common"
	"github.com/learnkeeper/learnkeeper/internal/logging"
)

const userAgent = "LearnKeeper-Client/1.0"

// HTTPService talks JSON over HTTP to the learning server.
type HTTPService struct {
	client  *http.Client
	baseURL string
	token   string
	logger  logging.Logger
}

// NewHTTPService returns a service bound to baseURL, e.g. "http://localhost:8080".
func NewHTTPService(baseURL string, timeout time.Duration, logger logging.Logger) *HTTPService {
	return &HTTPService{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// SetToken sets the bearer token attached to subsequent requests.
func (s *HTTPService) SetToken(token string) {
	s.token = token
}

func (s *HTTPService) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	s.logger.Debug(ctx, "sending request", "method", method, "path", path)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", common.ErrUnavailable, method, path, err)
	}

	return resp, nil
}

func (s *HTTPService) parse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%w: %s", common.ErrRemote, errResp.Error)
		}
		return fmt.Errorf("%w: status %d", common.ErrRemote, resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}

	return nil
}

func (s *HTTPService) Ping(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return err
	}
	return s.parse(resp, nil)
}

type notePayload struct {
	CourseID string `json:"course_id"`
	LessonID string `json:"lesson_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Tags     string `json:"tags,omitempty"`
}

func (s *HTTPService) CreateNote(ctx context.Context, note *models.Note) (string, error) {
	resp, err := s.do(ctx, http.MethodPost, "/api/v1/notes", notePayload{
		CourseID: note.CourseID,
		LessonID: note.LessonID,
		Title:    note.Title,
		Content:  note.Content,
		Tags:     note.Tags,
	})
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := s.parse(resp, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (s *HTTPService) UpdateNote(ctx context.Context, note *models.Note) error {
	resp, err := s.do(ctx, http.MethodPut, "/api/v1/notes/"+note.ID, notePayload{
		CourseID: note.CourseID,
		LessonID: note.LessonID,
		Title:    note.Title,
		Content:  note.Content,
		Tags:     note.Tags,
	})
	if err != nil {
		return err
	}
	return s.parse(resp, nil)
}

func (s *HTTPService) UpdateProgress(ctx context.Context, entry *models.ProgressEntry) error {
	payload := struct {
		CourseID  string  `json:"course_id"`
		LessonID  string  `json:"lesson_id"`
		Progress  float64 `json:"progress"`
		Completed bool    `json:"completed"`
	}{entry.CourseID, entry.LessonID, entry.Progress, entry.Completed}

	resp, err := s.do(ctx, http.MethodPut, "/api/v1/progress", payload)
	if err != nil {
		return err
	}
	return s.parse(resp, nil)
}

func (s *HTTPService) SubmitAssignment(ctx context.Context, sub *models.Submission) (string, error) {
	payload := struct {
		AssignmentID   string `json:"assignment_id"`
		Content        string `json:"content"`
		AttachmentName string `json:"attachment_name,omitempty"`
	}{sub.AssignmentID, sub.Content, sub.AttachmentName}

	resp, err := s.do(ctx, http.MethodPost, "/api/v1/submissions", payload)
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := s.parse(resp, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (s *HTTPService) SubmitQuiz(ctx context.Context, result *models.QuizResult) (QuizGrade, error) {
	payload := struct {
		QuizID  string          `json:"quiz_id"`
		Answers json.RawMessage `json:"answers"`
	}{result.QuizID, json.RawMessage(result.Answers)}

	resp, err := s.do(ctx, http.MethodPost, "/api/v1/quizzes/"+result.QuizID+"/submissions", payload)
	if err != nil {
		return QuizGrade{}, err
	}

	var grade QuizGrade
	if err := s.parse(resp, &grade); err != nil {
		return QuizGrade{}, err
	}
	return grade, nil
}

func (s *HTTPService) GetCourse(ctx context.Context, courseID string) (*CoursePayload, error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/v1/courses/"+courseID, nil)
	if err != nil {
		return nil, err
	}

	var course CoursePayload
	if err := s.parse(resp, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (s *HTTPService) GetLesson(ctx context.Context, lessonID string) (*LessonPayload, error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/v1/lessons/"+lessonID, nil)
	if err != nil {
		return nil, err
	}

	var lesson LessonPayload
	if err := s.parse(resp, &lesson); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FetchBytes downloads url in full. Relative urls are resolved against the
// service base URL.
func (s *HTTPService) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	target := url
	if len(url) > 0 && url[0] == '/' {
		target = s.baseURL + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", common.ErrUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d fetching %s", common.ErrRemote, resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}
