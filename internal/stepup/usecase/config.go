package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
)

type UpdateConfigInput struct {
	Length     int `validate:"required,gte=4,lte=10"`
	TTLSeconds int `validate:"required,gte=10,lte=86400"`
}

// UpdateConfig changes code length and validity for codes issued from now
// on. Codes already issued keep their digits; the new ttl applies to them.
func (s *Usecase) UpdateConfig(ctx context.Context, in UpdateConfigInput) error {
	ctx, span := s.startSpan(ctx, "UpdateConfig")
	defer span.End()

	id, err := s.gate.Authorize(ctx, authz.ObjectAdmin, authz.ActionWrite)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := s.repoDB.UpdateOtpConfig(ctx, entity.OtpConfig{
		CodeLength: in.Length,
		TTLSeconds: in.TTLSeconds,
		UpdatedAt:  s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo update otp config", "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "otp config updated", "by_user_id", id.UserID, "length", in.Length, "ttl_seconds", in.TTLSeconds)

	return nil
}

func (s *Usecase) GetConfig(ctx context.Context) (*entity.OtpConfig, error) {
	ctx, span := s.startSpan(ctx, "GetConfig")
	defer span.End()

	if _, err := s.gate.Authorize(ctx, authz.ObjectAdmin, authz.ActionRead); err != nil {
		return nil, err
	}

	cfg, err := s.OtpConfig(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read otp config", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &cfg, nil
}
