package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
)

type SweepOutput struct {
	Expired int64
	Skipped bool
}

// Sweep runs one expiry pass. It is skipped when another pass is still in
// flight, so ticks never overlap.
func (s *Usecase) Sweep(ctx context.Context) (*SweepOutput, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return &SweepOutput{Skipped: true}, nil
	}
	defer s.sweeping.Store(false)

	ctx, span := s.startSpan(ctx, "Sweep")
	defer span.End()

	start := time.Now()
	n, err := s.ExpireOlderThanTTL(ctx)
	s.metrics.sweepDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	return &SweepOutput{Expired: n}, nil
}

// TriggerSweep runs a sweep on behalf of an administrator.
func (s *Usecase) TriggerSweep(ctx context.Context) (*SweepOutput, error) {
	id, err := s.gate.Authorize(ctx, authz.ObjectAdmin, authz.ActionWrite)
	if err != nil {
		return nil, err
	}

	out, err := s.Sweep(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to sweep expired codes", "by_user_id", id.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "manual sweep finished", "by_user_id", id.UserID, "expired", out.Expired, "skipped", out.Skipped)

	return out, nil
}
