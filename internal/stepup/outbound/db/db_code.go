package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
)

const codeColumns = `id, user_id, operation_number, code_hash, status, channel, created_at, updated_at`

func scanCode(row pgx.Row) (*entity.Code, error) {
	var c entity.Code
	if err := row.Scan(&c.ID, &c.UserID, &c.OperationNumber, &c.CodeHash, &c.Status, &c.Channel, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *DB) CreateCode(ctx context.Context, code entity.Code, supersede bool) (superseded int64, err error) {
	ctx, span := s.startSpan(ctx, "CreateCode")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rolback", "error", rErr)
		}
	}()

	if supersede {
		tag, err := tx.Exec(ctx, `
			UPDATE otp_codes SET status = 'EXPIRED', updated_at = $3
			WHERE user_id = $1 AND operation_number = $2 AND status = 'ACTIVE'`,
			code.UserID, code.OperationNumber, code.CreatedAt)
		if err != nil {
			return 0, s.mapError(err)
		}
		superseded = tag.RowsAffected()
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO otp_codes (`+codeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		code.ID, code.UserID, code.OperationNumber, code.CodeHash,
		code.Status.String(), code.Channel, code.CreatedAt, code.UpdatedAt,
	); err != nil {
		return 0, s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, s.mapError(err)
	}

	return superseded, nil
}

// GetCodeByHash prefers the ACTIVE row; a digest may repeat across terminal rows.
func (s *DB) GetCodeByHash(ctx context.Context, hash string) (_ *entity.Code, err error) {
	ctx, span := s.startSpan(ctx, "GetCodeByHash")
	defer func() { s.endSpan(span, err) }()

	c, err := scanCode(s.conn.QueryRow(ctx, `
		SELECT `+codeColumns+` FROM otp_codes
		WHERE code_hash = $1
		ORDER BY (status = 'ACTIVE') DESC, created_at DESC
		LIMIT 1`, hash))
	if err != nil {
		return nil, s.mapError(err)
	}

	return c, nil
}

func (s *DB) ListCodesByUser(ctx context.Context, userID int64) (_ []entity.Code, err error) {
	ctx, span := s.startSpan(ctx, "ListCodesByUser")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT `+codeColumns+` FROM otp_codes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, s.mapError(err)
	}

	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Code, error) {
		c, err := scanCode(row)
		if err != nil {
			return entity.Code{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return codes, nil
}

func (s *DB) MarkCodeUsed(ctx context.Context, id int64, now, notBefore time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkCodeUsed")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE otp_codes SET status = 'USED', updated_at = $2
		WHERE id = $1 AND status = 'ACTIVE' AND created_at >= $3`,
		id, now, notBefore)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *DB) MarkCodesExpired(ctx context.Context, createdBefore, now time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "MarkCodesExpired")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE otp_codes SET status = 'EXPIRED', updated_at = $2
		WHERE status = 'ACTIVE' AND created_at < $1`,
		createdBefore, now)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}
