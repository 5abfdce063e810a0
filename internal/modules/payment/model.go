// Package payment records payments and reconciles gateway results into the
// request lifecycle.
package payment

import (
	"time"

	"roadassist/internal/types"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type Payment struct {
	ID        types.ID
	RequestID types.ID
	// Reference is the idempotency key: reprocessing the same reference is a
	// no-op after the first success.
	Reference string
	Amount    types.Money
	Status    Status
	Method    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
