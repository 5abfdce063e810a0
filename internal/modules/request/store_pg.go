package request

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roadassist/internal/types"
)

// PGStore persists requests in PostgreSQL.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, r *Request) error {
	var amount *int64
	var currency *string
	if r.Amount != nil {
		amount = &r.Amount.Amount
		currency = &r.Amount.Currency
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO service_requests (
			id, user_id, provider_id, service_type, status, status_version,
			address, lat, lng,
			vehicle_make, vehicle_model, vehicle_year, vehicle_color,
			amount, currency, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17
		)`,
		string(r.ID),
		string(r.UserID),
		toStringPtr(r.ProviderID),
		string(r.ServiceType),
		string(r.Status),
		r.StatusVersion,
		r.Location.Address, r.Location.Point.Lat, r.Location.Point.Lng,
		r.Vehicle.Make, r.Vehicle.Model, r.Vehicle.Year, r.Vehicle.Color,
		amount, currency,
		r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Request, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, provider_id, service_type, status, status_version,
		       address, lat, lng,
		       vehicle_make, vehicle_model, vehicle_year, vehicle_color,
		       amount, currency, created_at, updated_at
		FROM service_requests
		WHERE id = $1`, string(id),
	)
	return scanRequest(row)
}

func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, providerID *types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE service_requests
		SET status = $1,
		    status_version = status_version + 1,
		    provider_id = COALESCE($2, provider_id),
		    updated_at = NOW()
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to),
		toStringPtr(providerID),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) SetAmount(ctx context.Context, id types.ID, amount types.Money) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE service_requests
		SET amount = $1, currency = $2, updated_at = NOW()
		WHERE id = $3 AND amount IS NULL`,
		amount.Amount, amount.Currency, string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ListByStatus(ctx context.Context, status Status, createdBefore time.Time) ([]*Request, error) {
	query := `
		SELECT id, user_id, provider_id, service_type, status, status_version,
		       address, lat, lng,
		       vehicle_make, vehicle_model, vehicle_year, vehicle_color,
		       amount, currency, created_at, updated_at
		FROM service_requests
		WHERE status = $1`
	args := []any{string(status)}
	if !createdBefore.IsZero() {
		query += ` AND created_at < $2`
		args = append(args, createdBefore)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO request_state_events (
			request_id, from_status, to_status, actor_type, actor_id, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.RequestID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.Reason,
		e.CreatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var r Request
	var providerID sql.NullString
	var amount sql.NullInt64
	var currency sql.NullString

	err := row.Scan(
		&r.ID, &r.UserID, &providerID, &r.ServiceType, &r.Status, &r.StatusVersion,
		&r.Location.Address, &r.Location.Point.Lat, &r.Location.Point.Lng,
		&r.Vehicle.Make, &r.Vehicle.Model, &r.Vehicle.Year, &r.Vehicle.Color,
		&amount, &currency, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if providerID.Valid {
		p := types.ID(providerID.String)
		r.ProviderID = &p
	}
	if amount.Valid {
		m := types.Money{Amount: amount.Int64, Currency: currency.String}
		r.Amount = &m
	}
	return &r, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
