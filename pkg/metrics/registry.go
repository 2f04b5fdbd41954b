// Package metrics wires the cache, upload queue, and session builder into a
// process-wide Prometheus registry. Every recording function is a no-op
// until InitRegistry has been called, so call sites never need to branch on
// whether metrics are enabled (the same shape internal/logger uses for
// its package-level Debug/Info functions).
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.Mutex
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection and registers every collector
// against a fresh process-wide registry. Call once during startup, before
// any sync, restore, or retention pass runs. Calling it twice is a no-op.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	if registry != nil {
		return registry
	}
	registry = prometheus.NewRegistry()
	registerCacheCollectors(registry)
	registerUploadCollectors(registry)
	registerSessionCollectors(registry)
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil if metrics are not
// enabled.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

// Serve runs the metrics HTTP server on addr until ctx is cancelled, then
// shuts it down gracefully. It returns an error immediately if metrics were
// never enabled.
func Serve(ctx context.Context, addr string) error {
	reg := GetRegistry()
	if reg == nil {
		return errors.New("metrics: Serve called without InitRegistry")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}

func newCounter(reg *prometheus.Registry, name, help string) prometheus.Counter {
	return promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: name, Help: help})
}

func newCounterVec(reg *prometheus.Registry, name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(reg).NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

func newGauge(reg *prometheus.Registry, name, help string) prometheus.Gauge {
	return promauto.With(reg).NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
}

func newHistogram(reg *prometheus.Registry, name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(reg).NewHistogram(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets})
}
