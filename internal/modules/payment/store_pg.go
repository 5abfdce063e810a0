package payment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"roadassist/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, p *Payment) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO payments (
			id, request_id, reference, amount, currency, status, method, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(p.ID), string(p.RequestID), p.Reference,
		p.Amount.Amount, p.Amount.Currency, string(p.Status), p.Method,
		p.CreatedAt, p.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (s *PGStore) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, request_id, reference, amount, currency, status, method, created_at, updated_at
		FROM payments
		WHERE reference = $1`, reference,
	)
	return scanPayment(row)
}

func (s *PGStore) GetActiveByRequest(ctx context.Context, requestID types.ID) (*Payment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, request_id, reference, amount, currency, status, method, created_at, updated_at
		FROM payments
		WHERE request_id = $1 AND status IN ('pending', 'success')
		ORDER BY created_at DESC
		LIMIT 1`, string(requestID),
	)
	return scanPayment(row)
}

func (s *PGStore) MarkSuccess(ctx context.Context, reference, method string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE payments
		SET status = 'success', method = COALESCE(NULLIF($2, ''), method), updated_at = NOW()
		WHERE reference = $1 AND status <> 'success'`,
		reference, method,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) MarkFailed(ctx context.Context, reference string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE payments
		SET status = 'failed', updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'`,
		reference,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanPayment(row interface{ Scan(dest ...any) error }) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.RequestID, &p.Reference,
		&p.Amount.Amount, &p.Amount.Currency, &p.Status, &p.Method,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
