package db

import (
	"context"

	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
)

func (s *DB) GetUser(ctx context.Context, id int64) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUser")
	defer func() { s.endSpan(span, err) }()

	var u entity.User
	err = s.conn.QueryRow(ctx, `SELECT id, username, email, phone, telegram_chat_id FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.TelegramChatID)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &u, nil
}

func (s *DB) UpdateUserPassword(ctx context.Context, id int64, hash string) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateUserPassword")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
