// Package syncer pushes locally recorded mutations to the server. A sync
// pass sweeps the dirty records of every collection and then drains the
// pending-action queue; individual failures are collected, never fatal.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/client/models"
	"github.com/learnkeeper/learnkeeper/internal/client/remote"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/metadata"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/notes"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/progress"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/quizresults"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/submissions"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/syncqueue"
	"github.com/learnkeeper/learnkeeper/internal/common"
	"github.com/learnkeeper/learnkeeper/internal/logging"
)

// ConnectivitySource is the view of the network monitor the engine needs.
type ConnectivitySource interface {
	IsOnline() bool
	Transitions() <-chan bool
}

// Options tune a sync engine. Zero values fall back to the defaults below.
type Options struct {
	// Interval between periodic sync passes.
	Interval time.Duration

	// MaxAttempts bounds how many failed passes may touch one dirty
	// record before the sweep stops picking it up. A fresh local edit
	// resets the counter.
	MaxAttempts int

	// MaxQueueRetries bounds replay attempts for a queued action before
	// it is dropped and surfaced as a permanent failure.
	MaxQueueRetries int
}

const (
	defaultInterval        = 5 * time.Minute
	defaultMaxAttempts     = 3
	defaultMaxQueueRetries = 3
)

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = defaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.MaxQueueRetries <= 0 {
		o.MaxQueueRetries = defaultMaxQueueRetries
	}
	return o
}

// RecordError is one record that could not be uploaded during a pass.
type RecordError struct {
	Collection string
	RecordID   string
	Err        error
}

// PermanentFailure is a queued action dropped after exhausting its retries.
type PermanentFailure struct {
	Entry *models.QueueEntry
	Err   error
}

// Result summarizes one sync pass.
type Result struct {
	Started  time.Time
	Finished time.Time

	// Uploaded counts records and queued actions the server accepted.
	Uploaded int

	// Remapped maps temporary ids to the server ids assigned this pass.
	Remapped map[string]string

	Errors    []RecordError
	Permanent []PermanentFailure
}

// Degraded reports whether anything went wrong during the pass.
func (r *Result) Degraded() bool {
	return len(r.Errors) > 0 || len(r.Permanent) > 0
}

// Engine owns the sync loop. At most one pass runs at a time; manual and
// scheduled triggers contend for the same slot and the loser returns
// common.ErrSyncInProgress.
type Engine struct {
	remote  remote.Service
	monitor ConnectivitySource
	opts    Options
	logger  logging.Logger

	notes       notes.Repository
	progress    progress.Repository
	submissions submissions.Repository
	quizResults quizresults.Repository
	queue       syncqueue.Repository
	metadata    metadata.Repository

	mu        sync.Mutex
	syncing   bool
	lastError bool

	now func() time.Time
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Remote      remote.Service
	Monitor     ConnectivitySource
	Notes       notes.Repository
	Progress    progress.Repository
	Submissions submissions.Repository
	QuizResults quizresults.Repository
	Queue       syncqueue.Repository
	Metadata    metadata.Repository
	Logger      logging.Logger
}

func New(deps Deps, opts Options) *Engine {
	return &Engine{
		remote:      deps.Remote,
		monitor:     deps.Monitor,
		opts:        opts.withDefaults(),
		logger:      deps.Logger,
		notes:       deps.Notes,
		progress:    deps.Progress,
		submissions: deps.Submissions,
		quizResults: deps.QuizResults,
		queue:       deps.Queue,
		metadata:    deps.Metadata,
		now:         time.Now,
	}
}

// Status reports the single sync state surfaced to the UI.
func (e *Engine) Status() models.SyncStatus {
	e.mu.Lock()
	syncing, lastError := e.syncing, e.lastError
	e.mu.Unlock()

	switch {
	case syncing:
		return models.SyncStatusSyncing
	case !e.monitor.IsOnline():
		return models.SyncStatusOffline
	case lastError:
		return models.SyncStatusError
	default:
		return models.SyncStatusSynced
	}
}

// LastSyncTime returns the completion time of the most recent pass, or the
// zero time when no pass has finished yet.
func (e *Engine) LastSyncTime(ctx context.Context) (time.Time, error) {
	raw, err := e.metadata.Get(ctx, metadata.KeyLastSyncTime)
	if err != nil {
		return time.Time{}, err
	}
	if raw == nil {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, string(raw))
}

// Run drives periodic syncing until ctx is cancelled. A pass runs on every
// tick and immediately when connectivity is regained.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.tryScheduled(ctx)
		case online := <-e.monitor.Transitions():
			if online {
				e.tryScheduled(ctx)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) tryScheduled(ctx context.Context) {
	_, err := e.SyncNow(ctx)
	switch {
	case err == nil:
	case err == common.ErrOffline, err == common.ErrSyncInProgress:
		e.logger.Debug(ctx, "scheduled sync skipped", "reason", err)
	default:
		e.logger.Error(ctx, "scheduled sync failed", "error", err)
	}
}

// SyncNow runs one sync pass. It returns common.ErrOffline when the server
// is unreachable and common.ErrSyncInProgress when a pass is already
// running. A degraded pass is not an error; inspect Result.
func (e *Engine) SyncNow(ctx context.Context) (*Result, error) {
	if !e.monitor.IsOnline() {
		return nil, common.ErrOffline
	}

	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return nil, common.ErrSyncInProgress
	}
	e.syncing = true
	e.mu.Unlock()

	// The guard is cleared in a defer so a panic inside the pass cannot
	// leave the engine stuck reporting StatusSyncing forever.
	var res *Result
	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.lastError = res == nil || res.Degraded()
		e.mu.Unlock()
	}()

	res = e.runPass(ctx)
	return res, nil
}

func (e *Engine) runPass(ctx context.Context) *Result {
	res := &Result{
		Started:  e.now(),
		Remapped: map[string]string{},
	}

	e.logger.Info(ctx, "sync pass started")

	e.sweepNotes(ctx, res)
	e.sweepProgress(ctx, res)
	e.sweepSubmissions(ctx, res)
	e.sweepQuizResults(ctx, res)
	e.drainQueue(ctx, res)

	res.Finished = e.now()

	if err := e.metadata.Set(ctx, metadata.KeyLastSyncTime,
		[]byte(res.Finished.UTC().Format(time.RFC3339Nano))); err != nil {
		e.logger.Error(ctx, "storing last sync time", "error", err)
	}

	e.logger.Info(ctx, "sync pass finished",
		"uploaded", res.Uploaded,
		"errors", len(res.Errors),
		"permanent", len(res.Permanent),
		"duration", res.Finished.Sub(res.Started))

	return res
}

func (e *Engine) sweepNotes(ctx context.Context, res *Result) {
	dirty, err := e.notes.ListDirty(ctx, e.opts.MaxAttempts)
	if err != nil {
		res.Errors = append(res.Errors, RecordError{Collection: "notes", Err: err})
		return
	}

	for _, n := range dirty {
		snapshot := n.UpdatedAt

		if models.IsTempID(n.ID) {
			serverID, err := e.remote.CreateNote(ctx, n)
			if err != nil {
				e.recordFailure(ctx, res, "notes", n.ID, err, func() (int, error) {
					return e.notes.BumpSyncAttempts(ctx, n.ID)
				})
				continue
			}
			if err := e.notes.ConfirmCreate(ctx, n.ID, serverID, snapshot); err != nil {
				res.Errors = append(res.Errors, RecordError{"notes", n.ID, err})
				continue
			}
			res.Remapped[n.ID] = serverID
			res.Uploaded++
			continue
		}

		if err := e.remote.UpdateNote(ctx, n); err != nil {
			e.recordFailure(ctx, res, "notes", n.ID, err, func() (int, error) {
				return e.notes.BumpSyncAttempts(ctx, n.ID)
			})
			continue
		}
		clean, err := e.notes.MarkSynced(ctx, n.ID, snapshot)
		if err != nil {
			res.Errors = append(res.Errors, RecordError{"notes", n.ID, err})
			continue
		}
		if !clean {
			e.logger.Debug(ctx, "note edited during sync, stays dirty", "note_id", n.ID)
		}
		res.Uploaded++
	}
}

func (e *Engine) sweepProgress(ctx context.Context, res *Result) {
	dirty, err := e.progress.ListDirty(ctx, e.opts.MaxAttempts)
	if err != nil {
		res.Errors = append(res.Errors, RecordError{Collection: "progress", Err: err})
		return
	}

	for _, p := range dirty {
		key := p.CourseID + "/" + p.LessonID
		snapshot := p.UpdatedAt

		if err := e.remote.UpdateProgress(ctx, p); err != nil {
			e.recordFailure(ctx, res, "progress", key, err, func() (int, error) {
				return e.progress.BumpSyncAttempts(ctx, p.CourseID, p.LessonID)
			})
			continue
		}
		if _, err := e.progress.MarkSynced(ctx, p.CourseID, p.LessonID, snapshot); err != nil {
			res.Errors = append(res.Errors, RecordError{"progress", key, err})
			continue
		}
		res.Uploaded++
	}
}

// sweepSubmissions uploads crash orphans only: submissions whose queued
// create action is missing. Records with a pending queue entry are left to
// the drain so a creation is never replayed twice in one pass.
func (e *Engine) sweepSubmissions(ctx context.Context, res *Result) {
	dirty, err := e.submissions.ListDirty(ctx, e.opts.MaxAttempts)
	if err != nil {
		res.Errors = append(res.Errors, RecordError{Collection: "submissions", Err: err})
		return
	}

	for _, s := range dirty {
		queued, err := e.queue.ExistsForRecord(ctx, models.QueueTypeSubmission, s.ID)
		if err != nil {
			res.Errors = append(res.Errors, RecordError{"submissions", s.ID, err})
			continue
		}
		if queued {
			continue
		}
		if !models.IsTempID(s.ID) {
			// Submissions are immutable after creation; a dirty flag on a
			// confirmed record carries nothing left to upload.
			if _, err := e.submissions.MarkSynced(ctx, s.ID, s.UpdatedAt); err != nil {
				res.Errors = append(res.Errors, RecordError{"submissions", s.ID, err})
			}
			continue
		}

		serverID, err := e.remote.SubmitAssignment(ctx, s)
		if err != nil {
			e.recordFailure(ctx, res, "submissions", s.ID, err, func() (int, error) {
				return e.submissions.BumpSyncAttempts(ctx, s.ID)
			})
			continue
		}
		if err := e.submissions.ConfirmCreate(ctx, s.ID, serverID, s.UpdatedAt); err != nil {
			res.Errors = append(res.Errors, RecordError{"submissions", s.ID, err})
			continue
		}
		res.Remapped[s.ID] = serverID
		res.Uploaded++
	}
}

// sweepQuizResults mirrors sweepSubmissions for quiz attempts.
func (e *Engine) sweepQuizResults(ctx context.Context, res *Result) {
	dirty, err := e.quizResults.ListDirty(ctx, e.opts.MaxAttempts)
	if err != nil {
		res.Errors = append(res.Errors, RecordError{Collection: "quiz_results", Err: err})
		return
	}

	for _, q := range dirty {
		queued, err := e.queue.ExistsForRecord(ctx, models.QueueTypeQuizResult, q.ID)
		if err != nil {
			res.Errors = append(res.Errors, RecordError{"quiz_results", q.ID, err})
			continue
		}
		if queued {
			continue
		}
		if !models.IsTempID(q.ID) {
			// A confirmed attempt cannot be retaken locally, so a stray
			// dirty flag on it carries nothing left to upload.
			if _, err := e.quizResults.MarkSynced(ctx, q.ID, q.UpdatedAt); err != nil {
				res.Errors = append(res.Errors, RecordError{"quiz_results", q.ID, err})
			}
			continue
		}

		grade, err := e.remote.SubmitQuiz(ctx, q)
		if err != nil {
			e.recordFailure(ctx, res, "quiz_results", q.ID, err, func() (int, error) {
				return e.quizResults.BumpSyncAttempts(ctx, q.ID)
			})
			continue
		}
		if err := e.quizResults.ConfirmCreate(ctx, q.ID, grade.ResultID, grade.Score, q.UpdatedAt); err != nil {
			res.Errors = append(res.Errors, RecordError{"quiz_results", q.ID, err})
			continue
		}
		res.Remapped[q.ID] = grade.ResultID
		res.Uploaded++
	}
}

// recordFailure notes an upload failure and bumps the record's attempt
// counter so the sweep eventually gives up until the next local edit.
func (e *Engine) recordFailure(ctx context.Context, res *Result, collection, id string, uploadErr error, bump func() (int, error)) {
	res.Errors = append(res.Errors, RecordError{collection, id, uploadErr})

	attempts, err := bump()
	if err != nil {
		e.logger.Error(ctx, "bumping sync attempts", "collection", collection, "record_id", id, "error", err)
		return
	}
	if attempts >= e.opts.MaxAttempts {
		e.logger.Warn(ctx, "record reached attempt limit, parked until next edit",
			"collection", collection, "record_id", id, "attempts", attempts)
	}
}
