package goroutine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/stepup/internal/pkg/stacktrace"
)

// Pool runs blocking work on a bounded set of slots, separate from the request
// goroutines. Unlike Manager.Go, Do waits for a free slot and for the result.
type Pool struct {
	sema chan struct{}
}

// NewPool creates a Pool with size slots. A non-positive size uses DefaultMaxGoroutine.
func NewPool(size int) *Pool {
	if size < 1 {
		size = DefaultMaxGoroutine
	}
	return &Pool{sema: make(chan struct{}, size)}
}

// Do runs f on a pool slot and returns its error. It returns ctx.Err() only
// if the context ends before a slot frees up. Once f has started, Do waits
// for it, so the caller never reports a failure for work that completed; f
// is expected to watch ctx. A panic in f is recovered and reported as an
// error.
func (p *Pool) Do(ctx context.Context, f func(ctx context.Context) error) (err error) {
	select {
	case p.sema <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sema }()

	defer func() {
		if rvr := recover(); rvr != nil {
			paths := stacktrace.InternalPaths(debug.Stack())
			slog.ErrorContext(ctx, "panic occurred in pool worker", "because", rvr, "stack", paths)
			err = fmt.Errorf("goroutine: worker panic: %v", rvr)
		}
	}()

	return f(ctx)
}

// InFlight reports the number of occupied slots.
func (p *Pool) InFlight() int {
	return len(p.sema)
}
