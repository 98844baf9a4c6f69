package httpapi

import (
	"context"
	"time"

	"github.com/nikbrunner/marks/internal/hierarchy"
	"github.com/nikbrunner/marks/internal/logger"
	"github.com/nikbrunner/marks/internal/metrics"
)

// Deps holds what the handlers share.
type Deps struct {
	Service   *hierarchy.Service
	Logger    logger.Logger
	Metrics   *metrics.Collector             // nil disables /metrics and request metrics
	Ready     func(ctx context.Context) error // nil = always ready
	StartTime time.Time
	Version   string
}
