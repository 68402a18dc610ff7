package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
)

type DeleteUserInput struct {
	ID int64 `validate:"required,gt=0"`
}

// DeleteUser removes the account with its codes, sessions and delivered
// FILE objects. Session and object cleanup failures are logged only; the
// account is already gone by then.
func (s *Usecase) DeleteUser(ctx context.Context, in DeleteUserInput) error {
	ctx, span := s.startSpan(ctx, "DeleteUser")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	caller, err := s.gate.Authorize(ctx, authz.ObjectAdmin, authz.ActionWrite)
	if err != nil {
		return err
	}

	if caller.UserID == in.ID {
		slog.WarnContext(ctx, "admin tried to delete own account", "user_id", in.ID)
		return errDeleteSelf
	}

	user, err := s.repoDB.GetUserByID(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "user_id", in.ID)
		return errUserNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	codes, err := s.repoDB.DeleteUser(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account already deleted", "user_id", in.ID)
		return errUserNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete user", "user_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.sessions.RevokeUser(ctx, in.ID); err != nil {
		slog.ErrorContext(ctx, "failed to revoke user sessions", "user_id", in.ID, "error", err)
	}

	var objects int
	if s.storage != nil {
		objects, err = s.storage.DeletePrefix(ctx, s.cfg.GetString("notification.file.bucket"),
			delivery.FilePrefix(s.cfg.GetString("notification.file.prefix"), user.Username))
		if err != nil {
			slog.ErrorContext(ctx, "failed to delete user files", "user_id", in.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "user deleted", "user_id", in.ID, "by_user_id", caller.UserID,
		"codes_deleted", codes, "files_deleted", objects)

	return nil
}
