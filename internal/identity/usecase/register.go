package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/stepup/internal/identity/entity"
	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
)

type RegisterInput struct {
	Username       string `validate:"required,username"`
	Password       string `validate:"required,password"`
	Email          string `validate:"required,email"`
	Role           string `validate:"omitempty,oneof=USER ADMIN"`
	Phone          string `validate:"omitempty,max=32"`
	TelegramChatID string `validate:"omitempty,max=64"`
}

type RegisterOutput struct {
	ID       int64
	Username string
	Role     string
}

func (s *Usecase) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToUpper(strings.TrimSpace(in.Role))
	in.Phone = strings.TrimSpace(in.Phone)
	in.TelegramChatID = strings.TrimSpace(in.TelegramChatID)
	if in.Role == "" {
		in.Role = authz.RoleUser
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	passHash, err := s.passwordHasher().Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	user := entity.User{
		ID:             s.uid.Generate(),
		Username:       in.Username,
		PasswordHash:   string(passHash),
		Email:          in.Email,
		Role:           in.Role,
		Phone:          in.Phone,
		TelegramChatID: in.TelegramChatID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repoDB.CreateUser(ctx, user); err != nil {
		if constraint, ok := duplicateOf(err); ok {
			slog.WarnContext(ctx, "user already exists", "username", in.Username, "constraint", constraint)
			if constraint == entity.ConstraintSingleAdmin {
				return nil, errAdminExists
			}
			return nil, errUsernameTaken
		}

		slog.ErrorContext(ctx, "failed to repo create user", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)

	return &RegisterOutput{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}
