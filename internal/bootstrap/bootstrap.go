// Package bootstrap assembles the portal service from configuration. The HTTP server and
// gangactl share it so both see the same storage layout.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/config"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/dailyreward"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/games"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/kvstore"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/leaderboard"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/player"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/portal"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/progress"
)

// App is a wired portal service plus the resources it owns.
type App struct {
	Service portal.Service
	Store   kvstore.Store

	progress    *progress.Store
	leaderboard *leaderboard.Store
	cleanup     []func() error
}

// New opens the configured backend and directory and wires every store on top of them.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := newKVStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("kvstore init: %w", err)
	}
	app := &App{cleanup: []func() error{backend.Close}}

	cached, err := kvstore.NewCached(backend, cfg.CacheSize)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = cached

	directory, err := newDirectory(ctx, cfg, logger)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("directory init: %w", err)
	}
	if mongo, ok := directory.(*player.MongoDirectory); ok {
		app.cleanup = append(app.cleanup, func() error { return mongo.Close(context.Background()) })
	}

	content, err := games.DefaultContent()
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("game content: %w", err)
	}
	sessions, err := games.NewSessions(cfg.SessionCacheSize, content)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("game sessions: %w", err)
	}

	app.progress = progress.NewStore(cached, progress.Options{
		Namespace: cfg.Namespace,
		Location:  cfg.Location,
		Logger:    logger,
	})
	names := player.NewNames(cached, cfg.Namespace, logger)

	app.leaderboard = leaderboard.NewStore(cached, cfg.Namespace, logger)

	app.Service = portal.NewService(portal.Deps{
		Store:       cached,
		Namespace:   cfg.Namespace,
		Progress:    app.progress,
		Leaderboard: app.leaderboard,
		Daily:       dailyreward.NewGate(cached, cfg.Namespace, app.progress, logger),
		Players:     player.NewResolver(names, directory, logger),
		Sessions:    sessions,
		Logger:      logger,
	})

	logger.Info("portal wired",
		slog.String("datastore", string(cfg.DataStore)),
		slog.String("namespace", cfg.Namespace),
		slog.String("timezone", cfg.Location.String()),
	)
	return app, nil
}

// Watch starts forwarding writes made by other processes to subscribers until ctx ends.
func (a *App) Watch(ctx context.Context) error {
	if err := a.progress.Watch(ctx); err != nil {
		return fmt.Errorf("watch progress: %w", err)
	}
	if err := a.leaderboard.Watch(ctx); err != nil {
		return fmt.Errorf("watch leaderboard: %w", err)
	}
	return nil
}

// Close releases the backend and directory connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newKVStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (kvstore.Store, error) {
	switch cfg.DataStore {
	case config.DataStoreFile:
		return kvstore.NewFile(cfg.File.Dir, logger)
	case config.DataStoreSQLite:
		return kvstore.NewSQLite(ctx, cfg.SQLite.Path)
	case config.DataStorePostgres:
		return kvstore.NewPostgres(ctx, cfg.Postgres.URL, logger)
	case config.DataStoreFirestore:
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
		}
		return kvstore.OpenFirestore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.Database, cfg.Firestore.Collection, logger)
	default:
		return kvstore.NewMemory(), nil
	}
}

func newDirectory(ctx context.Context, cfg config.Config, logger *slog.Logger) (player.Directory, error) {
	if cfg.Mongo.URI == "" {
		return player.NewMemoryDirectory(), nil
	}
	directory, err := player.OpenMongoDirectory(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("account directory connected", slog.String("database", cfg.Mongo.Database))
	return directory, nil
}
