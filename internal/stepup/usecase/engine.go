package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var ten = big.NewInt(10)

// generateCode returns length decimal digits, each drawn uniformly from crypto/rand.
func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

// OtpConfig returns the stored code configuration, or the configured
// defaults when none was saved yet.
func (s *Usecase) OtpConfig(ctx context.Context) (entity.OtpConfig, error) {
	cfg, err := s.repoDB.GetOtpConfig(ctx)
	if errors.Is(err, goerror.ErrNotFound) {
		return entity.OtpConfig{
			CodeLength: s.cfg.GetInt("modules.stepup.otp.default_length"),
			TTLSeconds: s.cfg.GetInt("modules.stepup.otp.default_ttl_seconds"),
		}, nil
	}
	if err != nil {
		return entity.OtpConfig{}, err
	}
	return *cfg, nil
}

// Issue persists a new ACTIVE code for the user and operation and returns
// the plaintext value. The value only ever leaves through a channel.
func (s *Usecase) Issue(ctx context.Context, userID int64, operationNumber int, channel delivery.Channel) (string, error) {
	ctx, span := s.startSpan(ctx, "Issue")
	defer span.End()

	cfg, err := s.OtpConfig(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read otp config", "error", err)
		return "", goerror.NewServer(err)
	}

	attempts := s.cfg.GetUint64("modules.stepup.otp.max_generate_attempts")
	if attempts < 1 {
		attempts = 1
	}
	supersede := s.cfg.GetBool("modules.stepup.otp.supersede_active")

	var code string
	b := retry.WithMaxRetries(attempts-1, retry.NewConstant(time.Millisecond))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		value, err := generateCode(cfg.CodeLength)
		if err != nil {
			return err
		}

		digest, err := s.hmac.Hash(value)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		superseded, err := s.repoDB.CreateCode(ctx, entity.Code{
			ID:              s.uid.Generate(),
			UserID:          userID,
			OperationNumber: operationNumber,
			CodeHash:        string(digest),
			Status:          entity.CodeStatusActive,
			Channel:         channel.String(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}, supersede)
		if errors.Is(err, goerror.ErrConflict) {
			slog.WarnContext(ctx, "generated code collides with an active code", "user_id", userID)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}

		if superseded > 0 {
			slog.InfoContext(ctx, "superseded active codes", "user_id", userID, "operation", operationNumber, "count", superseded)
			s.metrics.expired.Add(ctx, superseded, metric.WithAttributes(attribute.String("reason", "superseded")))
		}

		code = value
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to persist code", "user_id", userID, "operation", operationNumber, "error", err)
		return "", goerror.NewServer(err)
	}

	s.metrics.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel.String())))

	return code, nil
}

// dispatch issues a code and hands it to the channel. A delivery failure
// leaves the code ACTIVE; the caller may perform again.
func (s *Usecase) dispatch(ctx context.Context, userID int64, operationNumber int, channel delivery.Channel) error {
	user, err := s.repoDB.GetUser(ctx, userID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user not found", "user_id", userID)
		return errUserNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user", "user_id", userID, "error", err)
		return goerror.NewServer(err)
	}

	code, err := s.Issue(ctx, userID, operationNumber, channel)
	if err != nil {
		return err
	}

	if err := s.dispatcher.Send(ctx, delivery.Notice{
		Channel: channel,
		Recipient: delivery.Recipient{
			UserID:         user.ID,
			Username:       user.Username,
			Email:          user.Email,
			Phone:          user.Phone,
			TelegramChatID: user.TelegramChatID,
		},
		Code:            code,
		OperationNumber: operationNumber,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to deliver code", "user_id", userID, "channel", channel, "error", err)
		return errDeliveryFailed(err)
	}

	return nil
}

func (s *Usecase) reject(ctx context.Context, reason string, attrs ...any) error {
	slog.WarnContext(ctx, "code rejected", append([]any{"reason", reason}, attrs...)...)
	s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	return errInvalidOrExpired
}

// checkValid returns the ACTIVE record for code if it is inside its window.
// A record still ACTIVE but past its window triggers the bulk expiry write
// before the code is reported invalid.
func (s *Usecase) checkValid(ctx context.Context, code string) (*entity.Code, entity.OtpConfig, error) {
	digest, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash code", "error", err)
		return nil, entity.OtpConfig{}, goerror.NewServer(err)
	}

	rec, err := s.repoDB.GetCodeByHash(ctx, string(digest))
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, entity.OtpConfig{}, s.reject(ctx, "not_found")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get code", "error", err)
		return nil, entity.OtpConfig{}, goerror.NewServer(err)
	}

	if rec.Status != entity.CodeStatusActive {
		return nil, entity.OtpConfig{}, s.reject(ctx, "not_active", "code_id", rec.ID, "status", rec.Status)
	}

	cfg, err := s.OtpConfig(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read otp config", "error", err)
		return nil, entity.OtpConfig{}, goerror.NewServer(err)
	}

	if rec.PastTTL(s.clock.Now(), cfg.TTL()) {
		if _, err := s.expire(ctx, cfg); err != nil {
			slog.ErrorContext(ctx, "failed to expire stale codes", "error", err)
		}
		return nil, entity.OtpConfig{}, s.reject(ctx, "past_ttl", "code_id", rec.ID)
	}

	return rec, cfg, nil
}

// CheckValid reports whether code exists, is ACTIVE and inside its window.
func (s *Usecase) CheckValid(ctx context.Context, code string) (bool, error) {
	ctx, span := s.startSpan(ctx, "CheckValid")
	defer span.End()

	_, _, err := s.checkValid(ctx, code)
	if errors.Is(err, errInvalidOrExpired) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ValidateAndConsume moves a valid code to USED with a single conditional
// write. Of any number of concurrent callers, exactly one succeeds.
func (s *Usecase) ValidateAndConsume(ctx context.Context, code string) (*entity.Code, error) {
	ctx, span := s.startSpan(ctx, "ValidateAndConsume")
	defer span.End()

	rec, cfg, err := s.checkValid(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ok, err := s.repoDB.MarkCodeUsed(ctx, rec.ID, now, now.Add(-cfg.TTL()))
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark code used", "code_id", rec.ID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !ok {
		return nil, s.reject(ctx, "lost_race", "code_id", rec.ID)
	}

	s.metrics.confirmed.Add(ctx, 1)

	rec.Status = entity.CodeStatusUsed
	rec.UpdatedAt = now
	return rec, nil
}

// ExpireOlderThanTTL moves every ACTIVE code past its window to EXPIRED and
// returns how many changed. Running it again with nothing stale returns 0.
func (s *Usecase) ExpireOlderThanTTL(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "ExpireOlderThanTTL")
	defer span.End()

	cfg, err := s.OtpConfig(ctx)
	if err != nil {
		return 0, err
	}
	return s.expire(ctx, cfg)
}

func (s *Usecase) expire(ctx context.Context, cfg entity.OtpConfig) (int64, error) {
	now := s.clock.Now()
	n, err := s.repoDB.MarkCodesExpired(ctx, now.Add(-cfg.TTL()), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.expired.Add(ctx, n, metric.WithAttributes(attribute.String("reason", "ttl")))
	}
	return n, nil
}
