package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikbrunner/marks/internal/httpapi"
	"github.com/nikbrunner/marks/internal/storage"
)

// runServe runs the HTTP API until SIGINT or SIGTERM.
func runServe(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := httpapi.New(a.cfg.Server, httpapi.Deps{
		Service: a.svc,
		Logger:  a.log,
		Metrics: a.metrics,
		Ready: func(ctx context.Context) error {
			return storage.Ping(ctx, a.backend)
		},
		StartTime: time.Now(),
		Version:   version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
