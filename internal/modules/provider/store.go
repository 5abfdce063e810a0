package provider

import (
	"context"
	"errors"

	"roadassist/internal/types"
)

var ErrNotFound = errors.New("provider not found")

// Store is the persistence boundary for providers. Claim and Release are
// conditional updates: transitioning to busy (with the request binding) and
// back must be single atomic operations.
type Store interface {
	Create(ctx context.Context, p *Provider) error
	Get(ctx context.Context, id types.ID) (*Provider, error)

	// ListActiveByServiceType returns active providers offering the type.
	ListActiveByServiceType(ctx context.Context, serviceType string) ([]*Provider, error)

	// Claim moves an active provider to busy and binds the request, in one
	// conditional operation keyed on status = active. False means the
	// provider was already claimed, deactivated, or missing.
	Claim(ctx context.Context, id, requestID types.ID) (bool, error)

	// Release moves a busy provider back to active and clears the binding.
	Release(ctx context.Context, id types.ID) (bool, error)

	// SetStatus flips between active and inactive. It refuses to touch a
	// busy provider.
	SetStatus(ctx context.Context, id types.ID, status Status) (bool, error)

	UpdateLocation(ctx context.Context, id types.ID, p types.Point) error
}
