// Package app wires configuration into the storage, media, catalog and
// auth components shared by every command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/catalog"
	"github.com/meur/sharehub/internal/config"
	"github.com/meur/sharehub/internal/logging"
	"github.com/meur/sharehub/internal/media"
	"github.com/meur/sharehub/internal/storage"
)

// App holds the constructed components.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Store   *storage.Store
	Objects media.ObjectStore
	Catalog *catalog.Service
	Gate    *auth.Gate

	closers []io.Closer
}

// New opens the database and object store described by cfg.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store)

	objects, err := OpenObjectStore(ctx, cfg.Media)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Objects = objects
	if c, ok := objects.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.Catalog, err = catalog.New(catalog.Deps{
		Store:  store,
		Media:  media.NewIngestor(objects, logger.Named("media")),
		Logger: logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Gate, err = auth.NewGate(auth.GateConfig{
		Password:      cfg.Admin.Password,
		SessionSecret: cfg.Admin.SessionSecret,
		Logger:        logger.Named("auth"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Admin.Password == "" {
		logger.Warn("admin password not configured, using the built-in default")
	}

	logger.Info("components ready",
		zap.String("database", store.Driver()),
		zap.String("media", cfg.Media.Backend))
	return a, nil
}

// OpenObjectStore constructs the configured media backend.
func OpenObjectStore(ctx context.Context, cfg config.MediaConfig) (media.ObjectStore, error) {
	switch cfg.Backend {
	case config.MediaLocal:
		store, err := media.NewLocalStore(cfg.Dir, cfg.PublicURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.MediaGCS:
		store, err := media.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.MediaGridFS:
		store, err := media.NewGridFSStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.PublicURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.Backend)
	}
}

// ServesMedia reports whether this process must serve /media/* itself.
func (a *App) ServesMedia() bool {
	return a.Config.Media.Backend != config.MediaGCS
}

// Close releases every opened component in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

// Bootstrap loads configuration, builds the logger and constructs an App.
// It is the shared entry point of the maintenance commands.
func Bootstrap(ctx context.Context, v *viper.Viper, configFile string) (*App, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	a, err := New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

// AdminSession opens an admin session with the configured password for
// commands that write through the catalog directly.
func (a *App) AdminSession() (auth.Session, error) {
	password := a.Config.Admin.Password
	if password == "" {
		password = auth.DefaultPassword
	}
	session, _, err := a.Gate.Login(password)
	if err != nil {
		return auth.Session{}, fmt.Errorf("admin login: %w", err)
	}
	return session, nil
}
