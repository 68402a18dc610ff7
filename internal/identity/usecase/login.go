package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
)

type LoginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type LoginOutput struct {
	Token    string
	UserID   int64
	Username string
	Role     string
}

func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByUsername(ctx, in.Username)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "username", in.Username)
		return nil, errInvalidCredential
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by username", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	// accounts created under either algorithm keep working after a switch
	if !hash.Any(user.PasswordHash, in.Password, s.bcrypt, s.argon2id) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return nil, errInvalidCredential
	}

	token, err := s.sessions.Issue(ctx, session.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue session", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &LoginOutput{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}
