package inbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/goroutine"
	"github.com/shandysiswandi/stepup/internal/stepup/usecase"
)

type sweeper interface {
	Sweep(ctx context.Context) (*usecase.SweepOutput, error)
}

// RegisterSweeper starts the periodic expiry job on routine. The loop ends
// when ctx is canceled; a sweep already running is allowed to finish.
func RegisterSweeper(ctx context.Context, cfg config.Config, routine *goroutine.Manager, uc sweeper) {
	if !cfg.GetBool("modules.stepup.sweeper.enabled") {
		slog.InfoContext(ctx, "code sweeper disabled")
		return
	}

	interval := cfg.GetSecond("modules.stepup.sweeper.interval_seconds")
	if interval <= 0 {
		interval = time.Minute
	}

	routine.Go(ctx, "code-sweeper", func(ctx context.Context) error {
		slog.InfoContext(ctx, "code sweeper started", "interval", interval.String())

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "code sweeper stopped")
				return nil
			case <-ticker.C:
				sweepOnce(context.WithoutCancel(ctx), uc)
			}
		}
	})
}

func sweepOnce(ctx context.Context, uc sweeper) {
	out, err := uc.Sweep(ctx)
	switch {
	case err != nil:
		slog.ErrorContext(ctx, "failed to sweep expired codes", "error", err)
	case out.Skipped:
		slog.DebugContext(ctx, "previous sweep still running, tick skipped")
	case out.Expired > 0:
		slog.InfoContext(ctx, "expired stale codes", "count", out.Expired)
	default:
		slog.DebugContext(ctx, "no stale codes to expire")
	}
}
