package models

import "time"

// QueueType identifies the domain a queued action targets.
type QueueType string

const (
	QueueTypeSubmission QueueType = "submission"
	QueueTypeQuizResult QueueType = "quiz_result"
)

// QueueAction is the remote operation to replay.
type QueueAction string

const (
	QueueActionCreate QueueAction = "create"
	QueueActionUpdate QueueAction = "update"
	QueueActionDelete QueueAction = "delete"
)

// QueueEntry is one pending side-effecting action. Entries are processed
// in EnqueuedAt order (insertion order breaks ties) and removed once the
// server confirms the action or RetryCount reaches the configured limit.
type QueueEntry struct {
	ID       int64
	Type     QueueType
	Action   QueueAction
	RecordID string // local record the action belongs to, for correlation
	Data     string // JSON payload needed to replay the action

	EnqueuedAt time.Time
	RetryCount int
}
