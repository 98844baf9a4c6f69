// Package store owns the authoritative bookmark and folder records. Reads
// see a published snapshot; mutations run copy-on-write against a private
// copy that is persisted and swapped in only when the whole mutation
// succeeds.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nikbrunner/marks/internal/logger"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
)

// Store is the entity store. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	backend storage.Storage
	snap    *model.Store
	last    time.Time // latest timestamp handed out

	newID func() string
	now   func() time.Time
	log   logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New loads the snapshot from backend. A snapshot without a root folder
// gets one and is saved back.
func New(ctx context.Context, backend storage.Storage, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		newID:   model.GenerateUUID,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	if snap.EnsureRoot(s.clock()) {
		s.log.Info("created root folder")
		if err := backend.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("save store: %w", err)
		}
	}
	s.publish(snap)

	s.log.Debug("store loaded",
		logger.Int("folders", len(snap.Folders)),
		logger.Int("bookmarks", len(snap.Bookmarks)))
	return s, nil
}

// clock returns the injected time in UTC.
func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// publish swaps in snap and advances last past every stored timestamp.
// Callers hold mu exclusively, except New.
func (s *Store) publish(snap *model.Store) {
	s.snap = snap
	for _, f := range snap.Folders {
		if f.CreatedAt.After(s.last) {
			s.last = f.CreatedAt
		}
	}
	for _, b := range snap.Bookmarks {
		if b.CreatedAt.After(s.last) {
			s.last = b.CreatedAt
		}
	}
}

// View runs fn against the published snapshot under a shared lock. fn must
// not modify the snapshot or retain it after returning.
func (s *Store) View(fn func(*model.Store) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.snap)
}

// Snapshot returns a deep copy of the published snapshot.
func (s *Store) Snapshot() *model.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Update runs fn in a transaction. When fn returns an error nothing is
// saved and the published snapshot is unchanged. When the backend is shared
// between processes, its lock is held for the whole read-modify-write cycle
// and the snapshot is reloaded first.
func (s *Store) Update(ctx context.Context, fn func(*Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if locker, ok := s.backend.(storage.Locker); ok {
		unlock, err := locker.Lock(ctx)
		if err != nil {
			return fmt.Errorf("lock store: %w", err)
		}
		defer func() {
			if err := unlock(); err != nil {
				s.log.Warn("failed to release store lock", logger.Error(err))
			}
		}()

		snap, err := s.backend.Load(ctx)
		if err != nil {
			return fmt.Errorf("reload store: %w", err)
		}
		snap.EnsureRoot(s.clock())
		s.publish(snap)
	}

	tx := &Tx{
		data:  s.snap.Clone(),
		newID: s.newID,
		now:   s.clock,
		last:  s.last,
	}
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}

	if err := s.backend.Save(ctx, tx.data); err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	s.snap = tx.data
	s.last = tx.last
	return nil
}
