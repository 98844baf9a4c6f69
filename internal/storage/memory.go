package storage

import (
	"context"
	"sync"

	"github.com/nikbrunner/marks/internal/model"
)

// MemoryStorage keeps the snapshot in process memory. Load and Save copy,
// so callers never share records with the backend.
type MemoryStorage struct {
	mu    sync.Mutex
	store *model.Store
	saves int
}

// NewMemoryStorage creates a MemoryStorage seeded with a copy of initial,
// or an empty store when initial is nil.
func NewMemoryStorage(initial *model.Store) *MemoryStorage {
	s := &MemoryStorage{store: &model.Store{Folders: []model.Folder{}, Bookmarks: []model.Bookmark{}}}
	if initial != nil {
		s.store = initial.Clone()
	}
	return s
}

// Load returns a copy of the held snapshot.
func (s *MemoryStorage) Load(ctx context.Context) (*model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Clone(), nil
}

// Save replaces the held snapshot with a copy of store.
func (s *MemoryStorage) Save(ctx context.Context, store *model.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStorage) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
