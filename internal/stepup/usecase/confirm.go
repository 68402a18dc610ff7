package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/valueobject"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
)

type ConfirmInput struct {
	Code    string `validate:"required"`
	Payload valueobject.JSONMap
}

type ConfirmOutput struct {
	OperationNumber int
	OperationName   string
	Username        string
	Result          string
}

// Confirm completes a step-up attempt. The operation runs against the user
// the code was issued to, not the caller's session. The payload is checked
// before the code is consumed, so a missing field leaves the code usable. A
// handler that fails after consumption reports "failed" and the code stays
// USED.
func (s *Usecase) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmOutput, error) {
	ctx, span := s.startSpan(ctx, "Confirm")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	caller, err := s.gate.Authorize(ctx, authz.ObjectOperation, authz.ActionWrite)
	if err != nil {
		return nil, err
	}

	rec, _, err := s.checkValid(ctx, in.Code)
	if err != nil {
		return nil, err
	}

	op, handler, err := s.operation(ctx, rec.OperationNumber)
	if err != nil {
		return nil, err
	}

	user, err := s.repoDB.GetUser(ctx, rec.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user bound to code not found", "user_id", rec.UserID)
		return nil, errUserNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user", "user_id", rec.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := handler.Validate(in.Payload); err != nil {
		slog.WarnContext(ctx, "operation payload rejected", "operation", op.Number, "user_id", user.ID)
		return nil, err
	}

	if caller.UserID != rec.UserID {
		slog.InfoContext(ctx, "code confirmed from another session", "caller_id", caller.UserID, "user_id", rec.UserID)
	}

	consumed, err := s.ValidateAndConsume(ctx, in.Code)
	if err != nil {
		return nil, err
	}

	result := make(chan string, 1)
	err = s.pool.Do(ctx, func(ctx context.Context) error {
		r, err := handler.Execute(ctx, consumed.UserID, in.Payload)
		if err != nil {
			return err
		}
		result <- r
		return nil
	})

	out := &ConfirmOutput{
		OperationNumber: op.Number,
		OperationName:   op.Name,
		Username:        user.Username,
		Result:          entity.ResultFailed,
	}
	if err != nil {
		slog.ErrorContext(ctx, "operation failed after code was consumed", "operation", op.Number, "user_id", user.ID, "error", err)
		return out, nil
	}

	out.Result = <-result
	return out, nil
}
