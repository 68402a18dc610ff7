package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
)

func (s *DB) GetOperation(ctx context.Context, number int) (_ *entity.Operation, err error) {
	ctx, span := s.startSpan(ctx, "GetOperation")
	defer func() { s.endSpan(span, err) }()

	var op entity.Operation
	err = s.conn.QueryRow(ctx, `SELECT number, name, description FROM operations WHERE number = $1`, number).
		Scan(&op.Number, &op.Name, &op.Description)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &op, nil
}

func (s *DB) ListOperations(ctx context.Context) (_ []entity.Operation, err error) {
	ctx, span := s.startSpan(ctx, "ListOperations")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT number, name, description FROM operations ORDER BY number`)
	if err != nil {
		return nil, s.mapError(err)
	}

	ops, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Operation, error) {
		var op entity.Operation
		err := row.Scan(&op.Number, &op.Name, &op.Description)
		return op, err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return ops, nil
}
