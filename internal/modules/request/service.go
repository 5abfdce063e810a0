package request

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"roadassist/internal/events"
	"roadassist/internal/modules/location"
	"roadassist/internal/modules/pricing"
	"roadassist/internal/observability"
	"roadassist/internal/types"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("request not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("request state conflict")
)

const (
	maxTransitionRetries = 3
	retryBackoff         = 50 * time.Millisecond
)

// ProviderReleaser frees a provider after its request reaches a terminal state.
type ProviderReleaser interface {
	Release(ctx context.Context, id types.ID) error
}

type ServiceDeps struct {
	Store     Store
	Pricing   *pricing.Engine
	Geocoder  location.Geocoder // optional; creation falls back to supplied coordinates
	Publisher events.Publisher
	Releaser  ProviderReleaser // optional
	Logger    *zap.Logger
	// Base is the dispatch origin the distance fee is measured from.
	Base types.Point
}

type Service struct {
	store     Store
	pricing   *pricing.Engine
	geocoder  location.Geocoder
	publisher events.Publisher
	releaser  ProviderReleaser
	logger    *zap.Logger
	base      types.Point
}

func NewService(deps ServiceDeps) *Service {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{
		store:     deps.Store,
		pricing:   deps.Pricing,
		geocoder:  deps.Geocoder,
		publisher: deps.Publisher,
		releaser:  deps.Releaser,
		logger:    deps.Logger,
		base:      deps.Base,
	}
}

type CreateCommand struct {
	UserID      types.ID
	ServiceType ServiceType
	Address     string
	Point       *types.Point // nil means "resolve Address via geocoder"
	Vehicle     Vehicle
}

// Create validates the command, resolves coordinates, prices the job and
// stores the request in pending_payment.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Request, error) {
	if cmd.UserID == "" || !cmd.ServiceType.Valid() {
		return nil, ErrBadRequest
	}
	if cmd.Vehicle.Make == "" || cmd.Vehicle.Model == "" {
		return nil, ErrBadRequest
	}

	var point types.Point
	if cmd.Point != nil {
		point = *cmd.Point
	} else {
		if s.geocoder == nil || cmd.Address == "" {
			return nil, ErrBadRequest
		}
		p, err := s.geocoder.Geocode(ctx, cmd.Address)
		if err != nil {
			return nil, err
		}
		point = p
	}

	breakdown := s.pricing.Breakdown(string(cmd.ServiceType), location.DistanceKm(s.base, point))
	amount := types.Money{Amount: breakdown.Total, Currency: breakdown.Currency}

	now := time.Now()
	r := &Request{
		ID:          types.ID(uuid.NewString()),
		UserID:      cmd.UserID,
		ServiceType: cmd.ServiceType,
		Status:      StatusPendingPayment,
		Location:    Location{Address: cmd.Address, Point: point},
		Vehicle:     cmd.Vehicle,
		Amount:      &amount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, &Event{
		RequestID:  r.ID,
		FromStatus: "",
		ToStatus:   StatusPendingPayment,
		ActorType:  "user",
		ActorID:    &cmd.UserID,
		CreatedAt:  now,
	})
	return r, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Request, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListPending(ctx context.Context) ([]*Request, error) {
	return s.store.ListByStatus(ctx, StatusPending, time.Time{})
}

// MarkPaid moves a request out of pending_payment after a verified payment.
func (s *Service) MarkPaid(ctx context.Context, id types.ID) error {
	return s.transition(ctx, id, StatusPending, "system", nil, nil, "payment_verified")
}

// SetAmountIfUnset records the amount on requests created without a price.
// A request that already carries an amount is left untouched.
func (s *Service) SetAmountIfUnset(ctx context.Context, id types.ID, amount types.Money) error {
	_, err := s.store.SetAmount(ctx, id, amount)
	return err
}

type AssignCommand struct {
	RequestID  types.ID
	ProviderID types.ID
}

// Assign binds a provider to a pending request. The provider must already
// have been claimed atomically by the matcher.
func (s *Service) Assign(ctx context.Context, cmd AssignCommand) error {
	if cmd.ProviderID == "" {
		return ErrBadRequest
	}
	return s.transition(ctx, cmd.RequestID, StatusAccepted, "system", &cmd.ProviderID, &cmd.ProviderID, "provider_assigned")
}

type StartCommand struct {
	RequestID  types.ID
	ProviderID types.ID
}

func (s *Service) Start(ctx context.Context, cmd StartCommand) error {
	if err := s.checkActingProvider(ctx, cmd.RequestID, cmd.ProviderID); err != nil {
		return err
	}
	return s.transition(ctx, cmd.RequestID, StatusInProgress, "provider", &cmd.ProviderID, nil, "provider_started")
}

type CompleteCommand struct {
	RequestID  types.ID
	ProviderID types.ID
}

func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) error {
	if err := s.checkActingProvider(ctx, cmd.RequestID, cmd.ProviderID); err != nil {
		return err
	}
	if err := s.transition(ctx, cmd.RequestID, StatusCompleted, "provider", &cmd.ProviderID, nil, "provider_completed"); err != nil {
		return err
	}
	s.releaseProvider(ctx, cmd.RequestID)
	return nil
}

type CancelCommand struct {
	RequestID types.ID
	ActorType string // "user", "provider" or "system"
	ActorID   *types.ID
	Reason    string
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	if err := s.transition(ctx, cmd.RequestID, StatusCancelled, cmd.ActorType, cmd.ActorID, nil, cmd.Reason); err != nil {
		return err
	}
	s.releaseProvider(ctx, cmd.RequestID)
	return nil
}

type ForceStatusCommand struct {
	RequestID types.ID
	Status    Status
	AdminID   types.ID
}

// ForceStatus is the operator override. It still goes through the optimistic
// commit, but ignores the transition table.
func (s *Service) ForceStatus(ctx context.Context, cmd ForceStatusCommand) error {
	if !cmd.Status.Valid() {
		return ErrBadRequest
	}
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		r, err := s.store.Get(ctx, cmd.RequestID)
		if err != nil {
			return err
		}
		if r.Status == cmd.Status {
			return nil
		}
		ok, err := s.store.UpdateStatus(ctx, r.ID, r.Status, cmd.Status, r.StatusVersion, nil)
		if err != nil {
			return err
		}
		if ok {
			s.commitSideEffects(ctx, r, cmd.Status, "admin", &cmd.AdminID, "admin_override")
			// forcing into a terminal status must free the bound provider,
			// same as the regular cancel/complete paths
			if cmd.Status == StatusCancelled || cmd.Status == StatusCompleted {
				s.releaseProvider(ctx, cmd.RequestID)
			}
			return nil
		}
		observability.TransitionConflicts.Inc()
		if err := sleepCtx(ctx, retryBackoff*time.Duration(attempt+1)); err != nil {
			return err
		}
	}
	return ErrConflict
}

// RunExpirySweep cancels pending_payment requests older than expiry. It runs
// until ctx is cancelled.
func (s *Service) RunExpirySweep(ctx context.Context, expiry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale, err := s.store.ListByStatus(ctx, StatusPendingPayment, time.Now().Add(-expiry))
			if err != nil {
				s.logger.Warn("expiry sweep list failed", zap.Error(err))
				continue
			}
			for _, r := range stale {
				err := s.Cancel(ctx, CancelCommand{RequestID: r.ID, ActorType: "system", Reason: "payment_expired"})
				if err != nil && !errors.Is(err, ErrInvalidState) {
					s.logger.Warn("expiry cancel failed", zap.String("request_id", string(r.ID)), zap.Error(err))
				}
			}
		}
	}
}

// transition applies one table-checked status change with bounded retries on
// optimistic-concurrency conflicts. providerID, when non-nil, is bound to the
// request as part of the same conditional update.
func (s *Service) transition(ctx context.Context, id types.ID, to Status, actorType string, actorID, providerID *types.ID, reason string) error {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		r, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(r.Status, to) {
			return ErrInvalidState
		}
		ok, err := s.store.UpdateStatus(ctx, r.ID, r.Status, to, r.StatusVersion, providerID)
		if err != nil {
			return err
		}
		if ok {
			s.commitSideEffects(ctx, r, to, actorType, actorID, reason)
			return nil
		}
		observability.TransitionConflicts.Inc()
		if err := sleepCtx(ctx, retryBackoff*time.Duration(attempt+1)); err != nil {
			return err
		}
	}
	return ErrConflict
}

func (s *Service) commitSideEffects(ctx context.Context, prev *Request, to Status, actorType string, actorID *types.ID, reason string) {
	now := time.Now()
	observability.TransitionsTotal.WithLabelValues(string(prev.Status), string(to)).Inc()
	s.recordEvent(ctx, &Event{
		RequestID:  prev.ID,
		FromStatus: prev.Status,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		Reason:     reason,
		CreatedAt:  now,
	})
}

func (s *Service) recordEvent(ctx context.Context, e *Event) {
	if err := s.store.AppendEvent(ctx, e); err != nil {
		s.logger.Warn("append event failed", zap.String("request_id", string(e.RequestID)), zap.Error(err))
	}
	err := s.publisher.Publish(ctx, events.TransitionEvent{
		RequestID:  e.RequestID,
		FromStatus: string(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		ActorType:  e.ActorType,
		ActorID:    e.ActorID,
		OccurredAt: e.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("publish event failed", zap.String("request_id", string(e.RequestID)), zap.Error(err))
	}
}

func (s *Service) checkActingProvider(ctx context.Context, requestID, providerID types.ID) error {
	if providerID == "" {
		return ErrBadRequest
	}
	r, err := s.store.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if r.ProviderID == nil || *r.ProviderID != providerID {
		return ErrBadRequest
	}
	return nil
}

func (s *Service) releaseProvider(ctx context.Context, requestID types.ID) {
	if s.releaser == nil {
		return
	}
	r, err := s.store.Get(ctx, requestID)
	if err != nil || r.ProviderID == nil {
		return
	}
	if err := s.releaser.Release(ctx, *r.ProviderID); err != nil {
		s.logger.Warn("provider release failed", zap.String("provider_id", string(*r.ProviderID)), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
