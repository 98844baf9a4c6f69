package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nikbrunner/marks/internal/config"
	"github.com/nikbrunner/marks/internal/hierarchy"
	"github.com/nikbrunner/marks/internal/logger"
	"github.com/nikbrunner/marks/internal/metrics"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
	"github.com/nikbrunner/marks/internal/store"
)

const metricsNamespace = "marks"

// app bundles everything a command needs.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	backend storage.Storage
	svc     *hierarchy.Service
	metrics *metrics.Collector
}

// openApp loads the configuration and opens the configured store.
func openApp(ctx context.Context) (*app, error) {
	path := os.Getenv("MARKS_CONFIG")
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return newApp(ctx, cfg, log)
}

func storageOptions(c config.StorageConfig) storage.Options {
	return storage.Options{
		Backend:       c.Backend,
		Path:          c.Path,
		Compress:      c.Compress,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisPrefix:   c.RedisKey,
		RedisLockTTL:  c.RedisLockTTL,
		PostgresDSN:   c.PostgresDSN,
	}
}

// newApp wires storage, store, service and metrics for cfg.
func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	backend, err := storage.Open(ctx, storageOptions(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	st, err := store.New(ctx, backend, store.WithLogger(log))
	if err != nil {
		_ = storage.Close(backend)
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}

	collector := metrics.NewCollector(metricsNamespace)
	collector.RegisterStoreSize(metricsNamespace, func() (bookmarks, folders int) {
		_ = st.View(func(s *model.Store) error {
			bookmarks, folders = len(s.Bookmarks), len(s.Folders)
			return nil
		})
		return bookmarks, folders
	})

	return &app{
		cfg:     cfg,
		log:     log,
		backend: backend,
		svc:     hierarchy.New(st, hierarchy.WithLogger(log), hierarchy.WithObserver(collector)),
		metrics: collector,
	}, nil
}

func (a *app) close() {
	if err := storage.Close(a.backend); err != nil {
		a.log.Warn("closing storage", logger.Error(err))
	}
	_ = a.log.Sync()
}
