// Package notes provides the client-side persistence layer for study notes.
//
// # Overview
//
// The package defines a Repository interface for CRUD and sync-related
// operations on Note models (see internal/client/models). A SQLite-backed
// implementation (SQLiteRepository) persists data using a dbx.DBTX (either
// *sql.DB or *sql.Tx).
//
// # Sync Model
//
// Every write marks the note dirty (needs_sync). The sync engine lists
// dirty notes with ListDirty, uploads them, and clears the flag with
// MarkSynced or ConfirmCreate. Both take a snapshot of updated_at taken
// when the note was read: the flag is cleared only when the stored value
// still matches, so an edit made while the upload was in flight keeps the
// note dirty for the next pass. ConfirmCreate additionally replaces the
// temporary id of an offline-created note with the server-assigned one.
//
// # Concurrency
//
// Implementations are expected to be safe for concurrent use when backed by
// a properly configured *sql.DB. When using *sql.Tx (DBTX), follow normal
// transaction scoping rules.
//
// Key Types
//
//   - type Repository        — interface used by higher-level services
//   - type SQLiteRepository  — SQLite implementation over dbx.DBTX
//
// Typical Usage
//
//	repo := notes.NewSQLiteRepository(db)
//	_ = repo.CreateOrUpdate(ctx, note)
package notes
