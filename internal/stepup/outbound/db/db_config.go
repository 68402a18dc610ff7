package db

import (
	"context"

	"github.com/shandysiswandi/stepup/internal/stepup/entity"
)

func (s *DB) GetOtpConfig(ctx context.Context) (_ *entity.OtpConfig, err error) {
	ctx, span := s.startSpan(ctx, "GetOtpConfig")
	defer func() { s.endSpan(span, err) }()

	var cfg entity.OtpConfig
	err = s.conn.QueryRow(ctx, `SELECT code_length, ttl_seconds, updated_at FROM otp_config WHERE id = 1`).
		Scan(&cfg.CodeLength, &cfg.TTLSeconds, &cfg.UpdatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &cfg, nil
}

func (s *DB) UpdateOtpConfig(ctx context.Context, cfg entity.OtpConfig) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateOtpConfig")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO otp_config (id, code_length, ttl_seconds, updated_at) VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET code_length = EXCLUDED.code_length, ttl_seconds = EXCLUDED.ttl_seconds, updated_at = EXCLUDED.updated_at`,
		cfg.CodeLength, cfg.TTLSeconds, cfg.UpdatedAt)
	err = s.mapError(err)
	return err
}
