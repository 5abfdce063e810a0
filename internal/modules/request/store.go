package request

import (
	"context"
	"time"

	"roadassist/internal/types"
)

// Store is the persistence boundary for service requests. Implementations
// must make UpdateStatus and SetAmount conditional: they commit only when the
// stored row still matches the caller's last observation.
type Store interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id types.ID) (*Request, error)

	// UpdateStatus commits from→to only if the stored status and version
	// still match. It reports whether a row was updated; false means the
	// caller lost a race and should reload.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, providerID *types.ID) (bool, error)

	// SetAmount records the computed amount only if none is set yet.
	SetAmount(ctx context.Context, id types.ID, amount types.Money) (bool, error)

	// ListByStatus returns requests in the given status created before the
	// cutoff, oldest first. A zero cutoff means no age filter.
	ListByStatus(ctx context.Context, status Status, createdBefore time.Time) ([]*Request, error)

	AppendEvent(ctx context.Context, e *Event) error
}
