package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/stepup/internal/identity/entity"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
)

const userColumns = `id, username, password_hash, email, role, phone, telegram_chat_id, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Role, &u.Phone, &u.TelegramChatID,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *DB) CreateUser(ctx context.Context, user entity.User) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Username, user.PasswordHash, user.Email, user.Role, user.Phone, user.TelegramChatID,
		user.CreatedAt, user.UpdatedAt,
	)

	return s.mapError(err)
}

func (s *DB) GetUserByUsername(ctx context.Context, username string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByUsername")
	defer func() { s.endSpan(span, err) }()

	u, err := scanUser(s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, s.mapError(err)
	}

	return u, nil
}

func (s *DB) GetUserByID(ctx context.Context, id int64) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByID")
	defer func() { s.endSpan(span, err) }()

	u, err := scanUser(s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, s.mapError(err)
	}

	return u, nil
}

func (s *DB) ListUsersByRole(ctx context.Context, role string) (_ []entity.User, err error) {
	ctx, span := s.startSpan(ctx, "ListUsersByRole")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id`, role)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	users := make([]entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	return users, rows.Err()
}

func (s *DB) DeleteUser(ctx context.Context, id int64) (codes int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteUser")
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

	tag, err := tx.Exec(ctx, `DELETE FROM otp_codes WHERE user_id = $1`, id)
	if err != nil {
		return 0, s.mapError(err)
	}
	codes = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return 0, goerror.ErrNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, s.mapError(err)
	}

	return codes, nil
}
