package provider

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roadassist/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, p *Provider) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO service_providers (
			id, name, service_types, status, lat, lng, rating, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(p.ID), p.Name, p.ServiceTypes, string(p.Status),
		p.Location.Lat, p.Location.Lng, p.Rating, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Provider, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, service_types, status, lat, lng, rating, current_request, created_at, updated_at
		FROM service_providers
		WHERE id = $1`, string(id),
	)
	return scanProvider(row)
}

func (s *PGStore) ListActiveByServiceType(ctx context.Context, serviceType string) ([]*Provider, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, service_types, status, lat, lng, rating, current_request, created_at, updated_at
		FROM service_providers
		WHERE status = 'active' AND $1 = ANY(service_types)
		ORDER BY id`, serviceType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) Claim(ctx context.Context, id, requestID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE service_providers
		SET status = 'busy', current_request = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'`,
		string(id), string(requestID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) Release(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE service_providers
		SET status = 'active', current_request = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'busy'`,
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) SetStatus(ctx context.Context, id types.ID, status Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE service_providers
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status <> 'busy'`,
		string(id), string(status),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) UpdateLocation(ctx context.Context, id types.ID, p types.Point) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE service_providers
		SET lat = $2, lng = $3, updated_at = NOW()
		WHERE id = $1`,
		string(id), p.Lat, p.Lng,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*Provider, error) {
	var p Provider
	var current sql.NullString

	err := row.Scan(
		&p.ID, &p.Name, &p.ServiceTypes, &p.Status,
		&p.Location.Lat, &p.Location.Lng, &p.Rating,
		&current, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if current.Valid {
		r := types.ID(current.String)
		p.CurrentRequest = &r
	}
	return &p, nil
}
