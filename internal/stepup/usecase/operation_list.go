package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
)

// ListOperations returns the operations that have a handler bound.
func (s *Usecase) ListOperations(ctx context.Context) ([]entity.Operation, error) {
	ctx, span := s.startSpan(ctx, "ListOperations")
	defer span.End()

	if _, err := s.gate.Authorize(ctx, authz.ObjectOperation, authz.ActionRead); err != nil {
		return nil, err
	}

	ops, err := s.repoDB.ListOperations(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list operations", "error", err)
		return nil, goerror.NewServer(err)
	}

	return lo.Filter(ops, func(op entity.Operation, _ int) bool {
		_, ok := s.registry.Handler(op.Number)
		return ok
	}), nil
}

type CodeHistoryItem struct {
	ID              int64
	OperationNumber int
	Channel         string
	Status          entity.CodeStatus
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// ListCodes returns the caller's code history, newest first. Values are
// never returned, only their state.
func (s *Usecase) ListCodes(ctx context.Context) ([]CodeHistoryItem, error) {
	ctx, span := s.startSpan(ctx, "ListCodes")
	defer span.End()

	id, err := s.gate.Authorize(ctx, authz.ObjectOperation, authz.ActionRead)
	if err != nil {
		return nil, err
	}

	cfg, err := s.OtpConfig(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read otp config", "error", err)
		return nil, goerror.NewServer(err)
	}

	codes, err := s.repoDB.ListCodesByUser(ctx, id.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list codes", "user_id", id.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	return lo.Map(codes, func(c entity.Code, _ int) CodeHistoryItem {
		status := c.Status
		if status == entity.CodeStatusActive && c.PastTTL(now, cfg.TTL()) {
			status = entity.CodeStatusExpired
		}
		return CodeHistoryItem{
			ID:              c.ID,
			OperationNumber: c.OperationNumber,
			Channel:         c.Channel,
			Status:          status,
			CreatedAt:       c.CreatedAt,
			ExpiresAt:       c.ExpiresAt(cfg.TTL()),
		}
	}), nil
}
