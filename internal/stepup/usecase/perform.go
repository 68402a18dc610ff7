package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/idempotency"
	"github.com/shandysiswandi/stepup/internal/pkg/ratelimit"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
)

type PerformInput struct {
	OperationNumber int    `validate:"required,gt=0"`
	Channel         string `validate:"required"`
	IdempotencyKey  string `validate:"omitempty,max=128"`
}

// Perform starts a step-up attempt: it issues a code for the operation and
// sends it over the requested channel. The code never appears in the result.
func (s *Usecase) Perform(ctx context.Context, in PerformInput) error {
	ctx, span := s.startSpan(ctx, "Perform")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	id, err := s.gate.Authorize(ctx, authz.ObjectOperation, authz.ActionWrite)
	if err != nil {
		return err
	}

	channel, ok := delivery.ParseChannel(in.Channel)
	if !ok {
		return goerror.NewInvalidInput(nil, "channel", "Unsupported channel")
	}

	op, _, err := s.operation(ctx, in.OperationNumber)
	if err != nil {
		return err
	}

	run := func(ctx context.Context) error {
		if err := s.allowPerform(ctx, id.UserID); err != nil {
			return err
		}
		return s.dispatch(ctx, id.UserID, op.Number, channel)
	}

	if in.IdempotencyKey == "" {
		return run(ctx)
	}

	ttl, err := s.idempotencyTTL(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read otp config", "user_id", id.UserID, "error", err)
		return goerror.NewServer(err)
	}

	key := "stepup:perform:" + strconv.FormatInt(id.UserID, 10) + ":" + in.IdempotencyKey
	err = s.idemp.Exec(ctx, key, run, idempotency.WithStateTTL(ttl))
	switch {
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		slog.InfoContext(ctx, "perform replayed with a completed idempotency key", "user_id", id.UserID)
		return nil
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		return goerror.NewBusiness("Request is already being processed", goerror.CodeConflict)
	case errors.Is(err, idempotency.ErrAlreadyFailed):
		return goerror.NewBusiness("Previous request with this key failed, use a new key", goerror.CodeConflict)
	case err != nil:
		var gerr *goerror.Error
		if !errors.As(err, &gerr) {
			slog.ErrorContext(ctx, "failed to track idempotency key", "user_id", id.UserID, "error", err)
			return goerror.NewServer(err)
		}
	}

	return err
}

// idempotencyTTL keeps a perform key for as long as the code it produced
// can be confirmed, following admin changes to the code ttl.
func (s *Usecase) idempotencyTTL(ctx context.Context) (time.Duration, error) {
	cfg, err := s.OtpConfig(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(cfg.TTLSeconds) * time.Second, nil
}

func (s *Usecase) allowPerform(ctx context.Context, userID int64) error {
	limit := s.cfg.GetInt("modules.stepup.rate_limit.perform_limit")
	if limit <= 0 {
		return nil
	}

	err := s.limiter.Allow(ctx, "perform:"+strconv.FormatInt(userID, 10), limit,
		s.cfg.GetSecond("modules.stepup.rate_limit.perform_window_seconds"))
	if errors.Is(err, ratelimit.ErrLimitExceeded) {
		slog.WarnContext(ctx, "perform rate limit exceeded", "user_id", userID)
		return errRateLimited
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to check perform rate limit", "user_id", userID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

// operation resolves a number to its reference data and handler. A number is
// known only when both exist.
func (s *Usecase) operation(ctx context.Context, number int) (*entity.Operation, Handler, error) {
	h, ok := s.registry.Handler(number)
	if !ok {
		slog.WarnContext(ctx, "operation has no handler", "operation", number)
		return nil, nil, errUnknownOperation
	}

	op, err := s.repoDB.GetOperation(ctx, number)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "operation not found", "operation", number)
		return nil, nil, errUnknownOperation
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get operation", "operation", number, "error", err)
		return nil, nil, goerror.NewServer(err)
	}

	return op, h, nil
}
