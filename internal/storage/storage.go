package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nikbrunner/marks/internal/model"
)

// Storage defines the interface for persisting bookmarks.
type Storage interface {
	Load(ctx context.Context) (*model.Store, error)
	Save(ctx context.Context, store *model.Store) error
}

// Locker is implemented by backends that can be shared between processes.
// Lock blocks until the caller holds exclusive access to the persisted
// state; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the file for the json and sqlite backends.
	Path string
	// Compress stores json snapshots zstd-compressed.
	Compress bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	RedisLockTTL  time.Duration

	PostgresDSN string
}

// Open opens the backend named by opts.Backend. An empty name picks sqlite
// when the default database file exists and json otherwise.
func Open(ctx context.Context, opts Options) (Storage, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendJSON
		if path, err := DefaultSQLitePath(); err == nil {
			if _, err := os.Stat(path); err == nil {
				backend = BackendSQLite
			}
		}
	}

	switch backend {
	case BackendMemory:
		return NewMemoryStorage(nil), nil
	case BackendJSON:
		path := opts.Path
		if path == "" {
			var err error
			if path, err = DefaultJSONPath(); err != nil {
				return nil, err
			}
		}
		return NewJSONStorage(path, JSONOptions{Compress: opts.Compress}), nil
	case BackendSQLite:
		path := opts.Path
		if path == "" {
			var err error
			if path, err = DefaultSQLitePath(); err != nil {
				return nil, err
			}
		}
		return NewSQLiteStorage(ctx, path)
	case BackendRedis:
		return NewRedisStorage(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
			LockTTL:  opts.RedisLockTTL,
		})
	case BackendPostgres:
		return NewPostgresStorage(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// Close releases backend resources when the backend holds any.
func Close(s Storage) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Ping checks that the backend is reachable when it supports checking.
func Ping(ctx context.Context, s Storage) error {
	if p, ok := s.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// DefaultDir returns ~/.config/marks.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "marks"), nil
}

// DefaultJSONPath returns the default snapshot path: ~/.config/marks/bookmarks.json
func DefaultJSONPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bookmarks.json"), nil
}

// DefaultSQLitePath returns the default SQLite database path: ~/.config/marks/bookmarks.db
func DefaultSQLitePath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bookmarks.db"), nil
}
