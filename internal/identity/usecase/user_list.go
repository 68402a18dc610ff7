package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/stepup/internal/identity/entity"
	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
)

// ListUsers returns regular accounts only; administrators are never listed.
func (s *Usecase) ListUsers(ctx context.Context) ([]entity.User, error) {
	ctx, span := s.startSpan(ctx, "ListUsers")
	defer span.End()

	if _, err := s.gate.Authorize(ctx, authz.ObjectAdmin, authz.ActionRead); err != nil {
		return nil, err
	}

	users, err := s.repoDB.ListUsersByRole(ctx, authz.RoleUser)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list users", "error", err)
		return nil, goerror.NewServer(err)
	}

	for i := range users {
		users[i].PasswordHash = ""
	}

	return users, nil
}
