// Package app wires the client together: local store, remote service,
// network monitor, mutation recorder, content cache, and the sync engine.
// It owns startup, the background loops, and graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/learnkeeper/learnkeeper/internal/client/cache"
	"github.com/learnkeeper/learnkeeper/internal/client/config"
	"github.com/learnkeeper/learnkeeper/internal/client/netmon"
	"github.com/learnkeeper/learnkeeper/internal/client/recorder"
	"github.com/learnkeeper/learnkeeper/internal/client/remote"
	"github.com/learnkeeper/learnkeeper/internal/client/repositories/metadata"
	"github.com/learnkeeper/learnkeeper/internal/client/store"
	"github.com/learnkeeper/learnkeeper/internal/client/syncer"
	"github.com/learnkeeper/learnkeeper/internal/logging"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	repos   *store.Repositories
	monitor *netmon.Monitor

	Recorder *recorder.Recorder
	Cache    *cache.Manager
	Engine   *syncer.Engine
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := store.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := store.NewRepositories(db)

	if err := ensureDeviceID(ctx, repos.Metadata); err != nil {
		db.Close()
		return nil, err
	}

	svc := remote.NewHTTPService(c.ServerEndpointAddr, c.RequestTimeout,
		logger.With("component", "remote"))
	monitor := netmon.NewMonitor(svc, c.OnlineCheckInterval,
		logger.With("component", "netmon"))

	rec := recorder.New(db, repos.Notes, repos.Progress, repos.Submissions,
		repos.QuizResults, repos.Queue, logger.With("component", "recorder"))

	cm := cache.NewManager(svc, repos.Content, logger.With("component", "cache"))

	engine := syncer.New(syncer.Deps{
		Remote:      svc,
		Monitor:     monitor,
		Notes:       repos.Notes,
		Progress:    repos.Progress,
		Submissions: repos.Submissions,
		QuizResults: repos.QuizResults,
		Queue:       repos.Queue,
		Metadata:    repos.Metadata,
		Logger:      logger.With("component", "syncer"),
	}, syncer.Options{
		Interval:        c.SyncInterval,
		MaxQueueRetries: c.MaxQueueRetries,
	})

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		repos:    repos,
		monitor:  monitor,
		Recorder: rec,
		Cache:    cm,
		Engine:   engine,
	}, nil
}

// ensureDeviceID mints a stable device identity on first run.
func ensureDeviceID(ctx context.Context, md metadata.Repository) error {
	existing, err := md.Get(ctx, metadata.KeyDeviceID)
	if err != nil {
		return fmt.Errorf("reading device id: %w", err)
	}
	if existing != nil {
		return nil
	}
	return md.Set(ctx, metadata.KeyDeviceID, []byte(uuid.NewString()))
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the network monitor and the sync loop and blocks until the
// context is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.initSignalHandler(cancel)

	app.monitor.Start(ctx)
	app.logger.Info(ctx, "client started",
		"server", app.config.ServerEndpointAddr,
		"db", app.config.DatabaseDSN,
		"sync_interval", app.config.SyncInterval)

	app.Engine.Run(ctx)

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(context.Background(), "client stopped")
}
