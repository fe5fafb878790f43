package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/glefebvre/iptvcore/internal/logger"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Handler closes the server and storage backends in reverse order of registration
type Handler struct {
	mu             sync.Mutex
	hooks          []hook
	timeout        time.Duration
	logger         *logger.Logger
	signalChan     chan os.Signal
	shutdownChan   chan struct{}
	isShuttingDown bool
	result         error
}

// New creates a new shutdown handler
func New(timeout time.Duration, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.AppLogger()
	}
	return &Handler{
		timeout:      timeout,
		logger:       log,
		signalChan:   make(chan os.Signal, 1),
		shutdownChan: make(chan struct{}),
	}
}

// Register adds a named hook; hooks run LIFO, one at a time
func (h *Handler) Register(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook{name: name, fn: fn})
}

// RegisterCloser adds a hook for a resource with a plain Close method
func (h *Handler) RegisterCloser(name string, closer interface{ Close() error }) {
	h.Register(name, func(context.Context) error { return closer.Close() })
}

// Wait blocks until SIGINT, SIGTERM, TriggerShutdown or ctx, then shuts down
func (h *Handler) Wait(ctx context.Context) error {
	signal.Notify(h.signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(h.signalChan)

	select {
	case sig := <-h.signalChan:
		h.logger.WithFields(map[string]interface{}{"signal": sig.String()}).Info("Shutdown signal received")
	case <-ctx.Done():
	}
	return h.Shutdown()
}

// Shutdown runs every hook once, even the ones after a failing hook, within
// the handler timeout. Later calls return the first result.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	if h.isShuttingDown {
		h.mu.Unlock()
		<-h.shutdownChan
		return h.result
	}
	h.isShuttingDown = true
	hooks := make([]hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hk := hooks[i]
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hk.name, err))
			continue
		}

		if err := hk.fn(ctx); err != nil {
			h.logger.WithFields(map[string]interface{}{"hook": hk.name}).Error("Shutdown hook failed", err)
			errs = append(errs, fmt.Errorf("%s: %w", hk.name, err))
			continue
		}
		h.logger.WithFields(map[string]interface{}{"hook": hk.name}).Debug("Shutdown hook completed")
	}

	h.result = errors.Join(errs...)
	close(h.shutdownChan)
	return h.result
}

// IsShuttingDown returns true if shutdown has been initiated
func (h *Handler) IsShuttingDown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isShuttingDown
}

// Done returns a channel closed once every hook has run
func (h *Handler) Done() <-chan struct{} {
	return h.shutdownChan
}

// TriggerShutdown makes Wait return as if SIGTERM was received
func (h *Handler) TriggerShutdown() {
	select {
	case h.signalChan <- syscall.SIGTERM:
	default:
	}
}
