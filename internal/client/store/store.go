// Package store opens the on-device SQLite database, applies schema
// migrations, and bundles the per-collection repositories.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/learnkeeper/learnkeeper/internal/client/migrations"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/content"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/metadata"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/notes"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/progress"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/quizresults"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/submissions"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/syncqueue"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Repositories groups one repository per local collection, all bound to
// the same database handle.
type Repositories struct {
	Notes       notes.Repository
	Progress    progress.Repository
	Submissions submissions.Repository
	QuizResults quizresults.Repository
	Content     content.Repository
	Queue       syncqueue.Repository
	Metadata    metadata.Repository
}

// RunMigrations applies all pending schema migrations. Safe to call on
// every start; goose tracks the applied version in its own table.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the local database at dsn and brings its
// schema up to date.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	// The store is mutated by both UI writes and the sync loop; a single
	// connection keeps SQLite writes serialized.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// NewRepositories binds a repository set to db.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Notes:       notes.NewSQLiteRepository(db),
		Progress:    progress.NewSQLiteRepository(db),
		Submissions: submissions.NewSQLiteRepository(db),
		QuizResults: quizresults.NewSQLiteRepository(db),
		Content:     content.NewSQLiteRepository(db),
		Queue:       syncqueue.NewSQLiteRepository(db),
		Metadata:    metadata.NewSQLiteRepository(db),
	}
}
