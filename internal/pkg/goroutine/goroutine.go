package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/stepup/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is used when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 100

// Manager runs named background jobs with a concurrency limit. Wait closes
// the manager, waits for running jobs and returns their joined errors.
type Manager struct {
	mu      sync.Mutex
	errs    []error
	wg      sync.WaitGroup
	sema    chan struct{}
	stateMu sync.RWMutex
	closed  bool
}

// NewManager creates a Manager running at most maxGoroutine jobs at once.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go starts f as job name and reports whether it was started. A closed or
// saturated manager refuses the job. A panic in f is logged and recorded as
// the job's error.
func (g *Manager) Go(ctx context.Context, name string, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed {
		slog.WarnContext(ctx, "goroutine manager is closed, job not started", "job", name)
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		slog.WarnContext(ctx, "goroutine limit reached, job not started", "job", name)
		return false
	}

	g.wg.Go(func() {
		defer func() { <-g.sema }()

		if err := run(ctx, name, f); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, fmt.Errorf("%s: %w", name, err))
			g.mu.Unlock()
		}
	})

	return true
}

func run(ctx context.Context, name string, f func(ctx context.Context) error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic occurred in goroutine", "job", name, "because", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic occurred in goroutine", "job", name, "because", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("panic: %v", rvr)
		}
	}()

	if ctx.Err() != nil {
		slog.WarnContext(ctx, "goroutine canceled before start", "job", name, "because", ctx.Err())
		return nil
	}

	return f(ctx)
}

// Wait blocks until all started jobs finish and returns their errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
