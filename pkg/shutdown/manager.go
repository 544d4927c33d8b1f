package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paylater_shutdown_duration_seconds",
		Help:    "Total time spent shutting down gracefully",
		Buckets: []float64{1, 5, 10, 15, 20, 25, 30},
	})

	componentShutdownDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paylater_component_shutdown_duration_seconds",
		Help:    "Time spent shutting down each component",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30},
	}, []string{"component"})

	shutdownErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylater_shutdown_errors_total",
		Help: "Shutdown errors by component",
	}, []string{"component"})
)

// Func shuts one component down. It must respect the deadline on ctx.
type Func func(context.Context) error

type component struct {
	fn   Func
	name string
}

// Manager closes registered components in reverse registration order (LIFO):
// work producers register last and stop first, the database pool registers
// first and closes last.
type Manager struct {
	logger     *zap.Logger
	components []component
	mu         sync.Mutex
	timeout    time.Duration
}

// NewManager creates a shutdown manager with one shared deadline for the
// whole shutdown sequence
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a shutdown step. Steps run in reverse registration order.
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.components = append(m.components, component{name: name, fn: fn})
	m.logger.Debug("registered shutdown component",
		zap.String("component", name),
		zap.Int("position", len(m.components)))
}

// RegisterHTTPServer registers a server with an http.Server-shaped Shutdown
func (m *Manager) RegisterHTTPServer(name string, server interface{ Shutdown(context.Context) error }) {
	m.Register(name, server.Shutdown)
}

// RegisterNoErr registers a shutdown step that cannot fail
func (m *Manager) RegisterNoErr(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// WaitForShutdown blocks until SIGINT or SIGTERM arrives, then runs Shutdown
func (m *Manager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	m.logger.Info("shutdown signal received",
		zap.String("signal", sig.String()),
		zap.Duration("timeout", m.timeout))

	m.Shutdown()
}

// Shutdown runs every registered step, newest first, under one shared
// deadline. A failing step is logged and counted; later steps still run so
// the database pool always gets its close.
func (m *Manager) Shutdown() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	components := make([]component, len(m.components))
	copy(components, m.components)
	m.mu.Unlock()

	m.logger.Info("shutting down",
		zap.Int("components", len(components)),
		zap.Duration("timeout", m.timeout))

	failed := 0
	for i := len(components) - 1; i >= 0; i-- {
		if err := m.shutdownComponent(ctx, components[i]); err != nil {
			failed++
		}
	}

	elapsed := time.Since(start)
	shutdownDuration.Observe(elapsed.Seconds())

	if failed > 0 {
		m.logger.Error("shutdown finished with errors",
			zap.Int("failed", failed),
			zap.Duration("elapsed", elapsed))
		return
	}
	m.logger.Info("shutdown complete", zap.Duration("elapsed", elapsed))
}

func (m *Manager) shutdownComponent(ctx context.Context, c component) error {
	start := time.Now()
	err := c.fn(ctx)
	componentShutdownDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	if err != nil {
		shutdownErrorsTotal.WithLabelValues(c.name).Inc()
		m.logger.Error("component shutdown failed",
			zap.String("component", c.name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}

	m.logger.Info("component shut down",
		zap.String("component", c.name),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
