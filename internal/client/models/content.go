package models

import "time"

// CacheStatus marks read-only content rows that were downloaded for
// offline viewing. It is deliberately a separate concept from
// Origin/NeedsSync: cached content never syncs back to the server.
type CacheStatus string

const (
	CacheStatusNotCached CacheStatus = "not_cached"
	CacheStatusCached    CacheStatus = "cached"
)

// Course is cached course metadata.
type Course struct {
	ID          string
	Title       string
	Description string
	LessonCount int

	CacheStatus  CacheStatus
	DownloadedAt time.Time
}

// Lesson is a cached lesson, including its video bytes when the download
// succeeded.
type Lesson struct {
	ID       string
	CourseID string
	Title    string
	Position int
	Video    []byte

	CacheStatus  CacheStatus
	DownloadedAt time.Time
}

// CourseFile is a downloaded lesson attachment.
type CourseFile struct {
	ID       string
	LessonID string
	CourseID string
	Name     string
	Body     []byte

	CacheStatus  CacheStatus
	DownloadedAt time.Time
}
