package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
)

func (s *Usecase) Logout(ctx context.Context, token string) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	id, ok := session.GetIdentity(ctx)
	if !ok {
		return goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}

	if err := s.sessions.Revoke(ctx, token); err != nil && !errors.Is(err, session.ErrInvalidToken) {
		slog.ErrorContext(ctx, "failed to revoke session", "user_id", id.UserID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
