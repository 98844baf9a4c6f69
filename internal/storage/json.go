package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nikbrunner/marks/internal/model"
)

// JSONOptions configures a JSONStorage.
type JSONOptions struct {
	// Compress writes zstd-compressed snapshots. Paths ending in ".zst"
	// are always compressed.
	Compress bool
}

// JSONStorage implements Storage using a JSON file.
type JSONStorage struct {
	path     string
	compress bool
	lock     fileLock

	mu   sync.Mutex
	last uint64 // fingerprint of the last snapshot read or written
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string, opts JSONOptions) *JSONStorage {
	return &JSONStorage{
		path:     path,
		compress: opts.Compress || strings.HasSuffix(path, ".zst"),
		lock:     newFileLock(path),
	}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Lock implements Locker.
func (s *JSONStorage) Lock(ctx context.Context) (func() error, error) {
	return s.lock.Lock(ctx)
}

// Load reads the store from the JSON file.
// Returns an empty store if the file doesn't exist.
func (s *JSONStorage) Load(ctx context.Context) (*model.Store, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Return empty store for missing file
			return &model.Store{
				Folders:   []model.Folder{},
				Bookmarks: []model.Bookmark{},
			}, nil
		}
		return nil, err
	}

	store, err := decodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	if fp, err := Fingerprint(store); err == nil {
		s.remember(fp)
	}
	return store, nil
}

// Save writes the store to the JSON file through a temp file and rename, so
// readers never observe a partial snapshot. Saving a snapshot identical to
// the last one read or written is a no-op.
func (s *JSONStorage) Save(ctx context.Context, store *model.Store) error {
	fp, err := Fingerprint(store)
	if err != nil {
		return err
	}
	if s.unchanged(fp) {
		if _, err := os.Stat(s.path); err == nil {
			return nil
		}
	}

	// Ensure directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := encodeSnapshot(store, s.compress)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}

	s.remember(fp)
	return nil
}

func (s *JSONStorage) remember(fp uint64) {
	s.mu.Lock()
	s.last = fp
	s.mu.Unlock()
}

func (s *JSONStorage) unchanged(fp uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last != 0 && s.last == fp
}
