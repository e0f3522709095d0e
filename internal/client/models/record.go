// Package models defines the client-side data types persisted in the local
// store: user mutations awaiting synchronization, cached course content,
// and sync-queue entries.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Origin records where an identifier came from. Records minted while the
// device could not reach the server carry a temporary id and
// OriginLocallyCreated until the server confirms them.
type Origin string

const (
	OriginLocallyCreated Origin = "locally_created"
	OriginServerSynced   Origin = "server_synced"
)

// TempIDPrefix marks identifiers generated on the device. Server ids never
// start with it.
const TempIDPrefix = "offline_"

// NewTempID returns a fresh device-local identifier.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was minted locally and still needs to be
// replaced by a server-assigned one.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Note is a learner's free-form note on a lesson or course.
type Note struct {
	ID       string
	CourseID string
	LessonID string
	Title    string
	Content  string
	Tags     string

	Origin       Origin
	NeedsSync    bool
	SyncAttempts int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProgressEntry is the learner's position in one lesson. It is keyed by
// (CourseID, LessonID) and always synced as "set current value", so it
// never carries a temporary id.
type ProgressEntry struct {
	CourseID  string
	LessonID  string
	Progress  float64 // percent, 0..100
	Completed bool

	NeedsSync    bool
	SyncAttempts int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Submission is an assignment answer. Creation is a discrete, create-once
// server action and goes through the sync queue.
type Submission struct {
	ID             string
	AssignmentID   string
	Content        string
	AttachmentName string

	Origin       Origin
	NeedsSync    bool
	SyncAttempts int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuizResult is a finished quiz attempt. Like submissions it is created
// exactly once on the server via the sync queue; Score holds the locally
// computed value until the server grades the attempt.
type QuizResult struct {
	ID      string
	QuizID  string
	Answers string // JSON object: question id -> answer
	Score   float64

	Origin       Origin
	NeedsSync    bool
	SyncAttempts int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncStatus is the single status value surfaced to the UI.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusError   SyncStatus = "error"
	SyncStatusOffline SyncStatus = "offline"
)
