package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ShutdownConfig configures graceful shutdown behavior.
type ShutdownConfig struct {
	// Timeout is the maximum time to wait for the in-flight message and the
	// hooks. Default: 5 seconds.
	Timeout time.Duration

	// OnShutdownStart is called when shutdown begins.
	OnShutdownStart func()

	// OnShutdownComplete is called when shutdown is complete.
	OnShutdownComplete func(err error)
}

// DefaultShutdownConfig returns sensible defaults for shutdown configuration.
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		Timeout: 5 * time.Second,
	}
}

type shutdownHook struct {
	name string
	fn   func(context.Context) error
}

// ShutdownManager coordinates shutdown of the stdio server: it stops
// accepting messages, waits for the one in flight, then runs the registered
// hooks (flush telemetry, close the log file) in reverse order.
type ShutdownManager struct {
	config ShutdownConfig

	draining  atomic.Bool
	inFlight  atomic.Int64
	doneCh    chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	hooks []shutdownHook
}

// NewShutdownManager creates a new shutdown manager.
func NewShutdownManager(config ShutdownConfig) *ShutdownManager {
	if config.Timeout == 0 {
		config.Timeout = DefaultShutdownConfig().Timeout
	}
	return &ShutdownManager{
		config: config,
		doneCh: make(chan struct{}),
	}
}

// OnShutdown registers a hook. Hooks run last-registered first, so resources
// opened early (the log file) are released after the ones built on them.
func (sm *ShutdownManager) OnShutdown(name string, fn func(context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.hooks = append(sm.hooks, shutdownHook{name: name, fn: fn})
}

// IsDraining returns true once shutdown has begun.
func (sm *ShutdownManager) IsDraining() bool {
	return sm.draining.Load()
}

// InFlightRequests returns the number of in-flight requests.
func (sm *ShutdownManager) InFlightRequests() int64 {
	return sm.inFlight.Load()
}

// TrackRequest increments the in-flight request counter.
// Returns false if the server is draining and new requests should be rejected.
func (sm *ShutdownManager) TrackRequest() bool {
	if sm.draining.Load() {
		return false
	}
	sm.inFlight.Add(1)
	return true
}

// CompleteRequest decrements the in-flight request counter.
func (sm *ShutdownManager) CompleteRequest() {
	sm.inFlight.Add(-1)
}

// Shutdown drains in-flight requests and runs the hooks. Every hook runs
// even if an earlier one fails; the errors are joined. Calling Shutdown more
// than once runs the hooks only the first time.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	if !sm.draining.CompareAndSwap(false, true) {
		<-sm.doneCh
		return nil
	}

	if sm.config.OnShutdownStart != nil {
		sm.config.OnShutdownStart()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, sm.config.Timeout)
	defer cancel()

	var errs []error
	if err := sm.waitIdle(timeoutCtx); err != nil {
		errs = append(errs, fmt.Errorf("waiting for in-flight requests: %w", err))
	}

	sm.mu.Lock()
	hooks := sm.hooks
	sm.hooks = nil
	sm.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].fn(timeoutCtx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
		}
	}

	shutdownErr := errors.Join(errs...)

	sm.closeOnce.Do(func() {
		close(sm.doneCh)
	})

	if sm.config.OnShutdownComplete != nil {
		sm.config.OnShutdownComplete(shutdownErr)
	}

	return shutdownErr
}

func (sm *ShutdownManager) waitIdle(ctx context.Context) error {
	if sm.inFlight.Load() == 0 {
		return nil
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if sm.inFlight.Load() > 0 {
				return ctx.Err()
			}
			return nil
		case <-ticker.C:
			if sm.inFlight.Load() == 0 {
				return nil
			}
		}
	}
}

// Done returns a channel that is closed when shutdown is complete.
func (sm *ShutdownManager) Done() <-chan struct{} {
	return sm.doneCh
}
