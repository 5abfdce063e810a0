package payment

import (
	"context"
	"errors"

	"roadassist/internal/types"
)

var (
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicate means the request already has a pending or successful
	// payment. Enforced by a partial unique index in Postgres.
	ErrDuplicate = errors.New("active payment exists for request")
)

// Store is the persistence boundary for payments. The status marks are
// conditional so that duplicate reconciliations collapse to a single commit.
type Store interface {
	// Create inserts a pending payment. ErrDuplicate when the request
	// already holds an active (pending or successful) payment.
	Create(ctx context.Context, p *Payment) error
	GetByReference(ctx context.Context, reference string) (*Payment, error)

	// GetActiveByRequest returns the pending or successful payment for the
	// request, or ErrNotFound.
	GetActiveByRequest(ctx context.Context, requestID types.ID) (*Payment, error)

	// MarkSuccess commits success exactly once per reference. False means a
	// concurrent reconciliation already succeeded.
	MarkSuccess(ctx context.Context, reference, method string) (bool, error)

	// MarkFailed moves a pending payment to failed. Decided payments are
	// left untouched.
	MarkFailed(ctx context.Context, reference string) (bool, error)
}
