package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
	"github.com/learnkeeper/learnkeeper/internal/client/recorder"
	"github.com/learnkeeper/learnkeeper/internal/common"
)

// errUnresolvedRef marks an entry whose payload still points at a
// temporary id that did not get a server id this pass. The entry is left
// in place without burning a retry.
var errUnresolvedRef = errors.New("payload references an unsynced record")

// drainQueue replays pending actions oldest first. A confirmed action is
// removed; a failed one keeps its place and is retried next pass until the
// retry limit drops it.
func (e *Engine) drainQueue(ctx context.Context, res *Result) {
	entries, err := e.queue.PeekAll(ctx)
	if err != nil {
		res.Errors = append(res.Errors, RecordError{Collection: "queue", Err: err})
		return
	}

	for _, entry := range entries {
		if err := e.replay(ctx, entry, res); err != nil {
			if errors.Is(err, errUnresolvedRef) {
				e.logger.Debug(ctx, "queued action deferred",
					"record_id", entry.RecordID, "reason", err)
				continue
			}
			e.failEntry(ctx, entry, err, res)
			continue
		}
		if err := e.queue.Remove(ctx, entry.ID); err != nil {
			res.Errors = append(res.Errors, RecordError{"queue", entry.RecordID, err})
			continue
		}
		res.Uploaded++
	}
}

func (e *Engine) replay(ctx context.Context, entry *models.QueueEntry, res *Result) error {
	switch {
	case entry.Type == models.QueueTypeSubmission && entry.Action == models.QueueActionCreate:
		return e.replaySubmission(ctx, entry, res)
	case entry.Type == models.QueueTypeQuizResult && entry.Action == models.QueueActionCreate:
		return e.replayQuizResult(ctx, entry, res)
	default:
		return fmt.Errorf("unsupported queue entry %s/%s", entry.Type, entry.Action)
	}
}

func (e *Engine) replaySubmission(ctx context.Context, entry *models.QueueEntry, res *Result) error {
	var payload recorder.SubmissionPayload
	if err := json.Unmarshal([]byte(entry.Data), &payload); err != nil {
		return fmt.Errorf("decoding submission payload: %w", err)
	}
	payload.AssignmentID = e.resolveID(payload.AssignmentID, res)
	if models.IsTempID(payload.AssignmentID) {
		return errUnresolvedRef
	}

	serverID, err := e.remote.SubmitAssignment(ctx, &models.Submission{
		ID:             entry.RecordID,
		AssignmentID:   payload.AssignmentID,
		Content:        payload.Content,
		AttachmentName: payload.AttachmentName,
	})
	if err != nil {
		return err
	}

	sub, err := e.submissions.GetByID(ctx, entry.RecordID)
	if errors.Is(err, common.ErrNotFound) {
		// The server accepted the upload but the local record is gone.
		// Nothing left to reconcile.
		e.logger.Warn(ctx, "queued submission has no local record",
			"record_id", entry.RecordID, "server_id", serverID)
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.submissions.ConfirmCreate(ctx, entry.RecordID, serverID, sub.UpdatedAt); err != nil {
		return err
	}
	res.Remapped[entry.RecordID] = serverID
	return nil
}

func (e *Engine) replayQuizResult(ctx context.Context, entry *models.QueueEntry, res *Result) error {
	var payload recorder.QuizPayload
	if err := json.Unmarshal([]byte(entry.Data), &payload); err != nil {
		return fmt.Errorf("decoding quiz payload: %w", err)
	}
	payload.QuizID = e.resolveID(payload.QuizID, res)
	if models.IsTempID(payload.QuizID) {
		return errUnresolvedRef
	}

	grade, err := e.remote.SubmitQuiz(ctx, &models.QuizResult{
		ID:      entry.RecordID,
		QuizID:  payload.QuizID,
		Answers: string(payload.Answers),
	})
	if err != nil {
		return err
	}

	q, err := e.quizResults.GetByID(ctx, entry.RecordID)
	if errors.Is(err, common.ErrNotFound) {
		e.logger.Warn(ctx, "queued quiz result has no local record",
			"record_id", entry.RecordID, "server_id", grade.ResultID)
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.quizResults.ConfirmCreate(ctx, entry.RecordID, grade.ResultID, grade.Score, q.UpdatedAt); err != nil {
		return err
	}
	res.Remapped[entry.RecordID] = grade.ResultID
	return nil
}

func (e *Engine) failEntry(ctx context.Context, entry *models.QueueEntry, replayErr error, res *Result) {
	retries, err := e.queue.IncrementRetry(ctx, entry.ID)
	if err != nil {
		res.Errors = append(res.Errors, RecordError{"queue", entry.RecordID, err})
		return
	}

	if retries >= e.opts.MaxQueueRetries {
		if err := e.queue.Remove(ctx, entry.ID); err != nil {
			res.Errors = append(res.Errors, RecordError{"queue", entry.RecordID, err})
			return
		}
		// Park the record too, or the next sweep would mistake it for a
		// crash orphan and replay the creation anyway.
		e.parkRecord(ctx, entry)
		e.logger.Error(ctx, "queued action dropped after retry limit",
			"type", entry.Type, "action", entry.Action,
			"record_id", entry.RecordID, "retries", retries, "error", replayErr)
		res.Permanent = append(res.Permanent, PermanentFailure{
			Entry: entry,
			Err:   fmt.Errorf("%w: %w", common.ErrRetryExhausted, replayErr),
		})
		return
	}

	e.logger.Warn(ctx, "queued action failed, will retry",
		"type", entry.Type, "record_id", entry.RecordID,
		"retries", retries, "error", replayErr)
	res.Errors = append(res.Errors, RecordError{"queue", entry.RecordID, replayErr})
}

// resolveID maps a temporary id to the server id assigned earlier in this
// pass, when one exists.
func (e *Engine) resolveID(id string, res *Result) string {
	if mapped, ok := res.Remapped[id]; ok {
		return mapped
	}
	return id
}

// parkRecord raises the record's attempt counter to the sweep limit so the
// dirty sweep stops picking it up.
func (e *Engine) parkRecord(ctx context.Context, entry *models.QueueEntry) {
	var bump func() (int, error)
	switch entry.Type {
	case models.QueueTypeSubmission:
		bump = func() (int, error) { return e.submissions.BumpSyncAttempts(ctx, entry.RecordID) }
	case models.QueueTypeQuizResult:
		bump = func() (int, error) { return e.quizResults.BumpSyncAttempts(ctx, entry.RecordID) }
	default:
		return
	}

	for i := 0; i < e.opts.MaxAttempts; i++ {
		attempts, err := bump()
		if err != nil || attempts >= e.opts.MaxAttempts {
			return
		}
	}
}
