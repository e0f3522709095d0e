// Package recorder captures user mutations in the local store. Every write
// lands locally first and is marked for upload; the sync engine pushes it
// to the server later.
package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/notes"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/progress"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/quizresults"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/submissions"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/syncqueue"
	"github.com/learnkeeper/learnkeeper/internal/dbx"
	"github.com/learnkeeper/learnkeeper/internal/logging"
)

// SubmissionPayload is the queued JSON for an assignment submission.
type SubmissionPayload struct {
	AssignmentID   string `json:"assignment_id"`
	Content        string `json:"content"`
	AttachmentName string `json:"attachment_name,omitempty"`
}

// QuizPayload is the queued JSON for a quiz attempt.
type QuizPayload struct {
	QuizID  string          `json:"quiz_id"`
	Answers json.RawMessage `json:"answers"`
}

// Recorder writes mutations to the local store. Notes and progress are
// idempotent value writes and rely on the needs_sync flag alone.
// Submissions and quiz attempts are create-once server actions, so the
// record and a queue entry are written in one transaction.
type Recorder struct {
	db          *sql.DB
	notes       notes.Repository
	progress    progress.Repository
	submissions submissions.Repository
	quizResults quizresults.Repository
	queue       syncqueue.Repository
	logger      logging.Logger

	now func() time.Time
}

func New(
	db *sql.DB,
	notesRepo notes.Repository,
	progressRepo progress.Repository,
	submissionsRepo submissions.Repository,
	quizRepo quizresults.Repository,
	queue syncqueue.Repository,
	logger logging.Logger,
) *Recorder {
	return &Recorder{
		db:          db,
		notes:       notesRepo,
		progress:    progressRepo,
		submissions: submissionsRepo,
		quizResults: quizRepo,
		queue:       queue,
		logger:      logger,
		now:         time.Now,
	}
}

// RecordNote creates or updates a note. A note without an id is minted a
// temporary one and marked locally created; an existing note keeps its id
// and origin. Either way the note becomes dirty and its attempt counter is
// reset so the next sync pass picks it up.
func (r *Recorder) RecordNote(ctx context.Context, n *models.Note) error {
	now := r.now()
	if n.ID == "" {
		n.ID = models.NewTempID()
		n.Origin = models.OriginLocallyCreated
		n.CreatedAt = now
	}
	if n.Origin == "" {
		n.Origin = models.OriginServerSynced
	}
	n.NeedsSync = true
	n.SyncAttempts = 0
	n.UpdatedAt = now

	if err := r.notes.CreateOrUpdate(ctx, n); err != nil {
		return fmt.Errorf("recording note: %w", err)
	}
	r.logger.Debug(ctx, "note recorded", "note_id", n.ID)
	return nil
}

// RecordProgress stores the current watch position for a lesson. Only the
// latest value matters; an unsynced older value is simply overwritten.
func (r *Recorder) RecordProgress(ctx context.Context, p *models.ProgressEntry) error {
	now := r.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.NeedsSync = true
	p.SyncAttempts = 0
	p.UpdatedAt = now

	if err := r.progress.Upsert(ctx, p); err != nil {
		return fmt.Errorf("recording progress: %w", err)
	}
	r.logger.Debug(ctx, "progress recorded",
		"course_id", p.CourseID, "lesson_id", p.LessonID, "progress", p.Progress)
	return nil
}

// RecordSubmission stores a new assignment submission and enqueues its
// create action atomically. Either both rows exist afterwards or neither
// does, so a crash cannot leave a submission the engine would never upload
// or a queue entry pointing at nothing.
func (r *Recorder) RecordSubmission(ctx context.Context, s *models.Submission) error {
	now := r.now()
	s.ID = models.NewTempID()
	s.Origin = models.OriginLocallyCreated
	s.NeedsSync = true
	s.SyncAttempts = 0
	s.CreatedAt = now
	s.UpdatedAt = now

	payload, err := json.Marshal(SubmissionPayload{
		AssignmentID:   s.AssignmentID,
		Content:        s.Content,
		AttachmentName: s.AttachmentName,
	})
	if err != nil {
		return fmt.Errorf("marshaling submission payload: %w", err)
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := submissions.NewSQLiteRepository(tx).CreateOrUpdate(ctx, s); err != nil {
			return err
		}
		_, err := syncqueue.NewSQLiteRepository(tx).Enqueue(ctx, &models.QueueEntry{
			Type:       models.QueueTypeSubmission,
			Action:     models.QueueActionCreate,
			RecordID:   s.ID,
			Data:       string(payload),
			EnqueuedAt: now,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("recording submission: %w", err)
	}

	r.logger.Info(ctx, "submission recorded",
		"submission_id", s.ID, "assignment_id", s.AssignmentID)
	return nil
}

// RecordQuizResult stores a finished quiz attempt and enqueues its create
// action atomically. Score keeps the locally computed value until the
// server grades the attempt during sync.
func (r *Recorder) RecordQuizResult(ctx context.Context, q *models.QuizResult) error {
	now := r.now()
	q.ID = models.NewTempID()
	q.Origin = models.OriginLocallyCreated
	q.NeedsSync = true
	q.SyncAttempts = 0
	q.CreatedAt = now
	q.UpdatedAt = now

	payload, err := json.Marshal(QuizPayload{
		QuizID:  q.QuizID,
		Answers: json.RawMessage(q.Answers),
	})
	if err != nil {
		return fmt.Errorf("marshaling quiz payload: %w", err)
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := quizresults.NewSQLiteRepository(tx).CreateOrUpdate(ctx, q); err != nil {
			return err
		}
		_, err := syncqueue.NewSQLiteRepository(tx).Enqueue(ctx, &models.QueueEntry{
			Type:       models.QueueTypeQuizResult,
			Action:     models.QueueActionCreate,
			RecordID:   q.ID,
			Data:       string(payload),
			EnqueuedAt: now,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("recording quiz result: %w", err)
	}

	r.logger.Info(ctx, "quiz result recorded", "result_id", q.ID, "quiz_id", q.QuizID)
	return nil
}
