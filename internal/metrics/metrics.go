// Package metrics exposes Prometheus counters for HTTP traffic and
// hierarchy operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nikbrunner/marks/internal/model"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Hierarchy operations, labelled with the error kind or "ok"
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry, so several can
// coexist in one process.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of store operations by result",
			},
			[]string{"op", "result"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Store operation duration in seconds, persistence included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Operations,
		c.OperationDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Observe records one hierarchy operation.
func (c *Collector) Observe(op string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = model.ErrorKind(err)
	}
	c.Operations.WithLabelValues(op, result).Inc()
	c.OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveHTTP records one HTTP request.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RegisterStoreSize exports the current record counts, read through fn on
// every scrape.
func (c *Collector) RegisterStoreSize(namespace string, fn func() (bookmarks, folders int)) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bookmarks",
			Help:      "Number of stored bookmarks",
		}, func() float64 {
			b, _ := fn()
			return float64(b)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "folders",
			Help:      "Number of stored folders, root included",
		}, func() float64 {
			_, f := fn()
			return float64(f)
		}),
	)
}
