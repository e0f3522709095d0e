// Package common defines shared constants and sentinel errors used across
// the engine's layers. Callers should match these with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrStorage  = errors.New("storage error")

	// Remote-service errors.
	ErrRemote      = errors.New("remote call failed")
	ErrUnavailable = errors.New("server unavailable")

	// Orchestrator flow control.
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrOffline        = errors.New("offline")

	// ErrRetryExhausted marks an action that failed its final attempt and
	// will not be retried automatically.
	ErrRetryExhausted = errors.New("retry limit reached")
)
