// Package hierarchy applies create, update, move and delete operations to
// bookmarks and folders. Every operation checks the tree invariants against
// the transaction's working copy and runs as a single store.Update, so a
// rejected operation leaves the store exactly as it was.
package hierarchy

import (
	"context"
	"time"

	"github.com/nikbrunner/marks/internal/logger"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/store"
)

// Observer is notified after every operation.
type Observer interface {
	Observe(op string, err error, elapsed time.Duration)
}

// Service is the hierarchy mutator and the read API over one store.
type Service struct {
	store *store.Store
	log   logger.Logger
	obs   Observer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithObserver sets the operation observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.obs = o }
}

// New returns a Service over st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{store: st, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying entity store.
func (s *Service) Store() *store.Store {
	return s.store
}

// update runs fn as one transaction and reports it.
func (s *Service) update(ctx context.Context, op string, fn func(*store.Tx) error) error {
	start := time.Now()
	err := s.store.Update(ctx, fn)
	s.done(op, err, time.Since(start))
	return err
}

// view runs fn against the published snapshot.
func (s *Service) view(op string, fn func(*model.Store) error) error {
	start := time.Now()
	err := s.store.View(fn)
	s.done(op, err, time.Since(start))
	return err
}

func (s *Service) done(op string, err error, elapsed time.Duration) {
	if s.obs != nil {
		s.obs.Observe(op, err, elapsed)
	}
	if err != nil {
		s.log.Debug("operation rejected",
			logger.String("op", op),
			logger.String("kind", model.ErrorKind(err)),
			logger.Error(err))
		return
	}
	s.log.Debug("operation done",
		logger.String("op", op),
		logger.Duration("elapsed", elapsed))
}
