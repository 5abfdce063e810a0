package provider

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"roadassist/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrBusy       = errors.New("provider is busy")
)

type Service struct {
	store  Store
	index  *GeoIndex // optional
	logger *zap.Logger
}

func NewService(store Store, index *GeoIndex, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, index: index, logger: logger}
}

type RegisterCommand struct {
	Name         string
	ServiceTypes []string
	Location     types.Point
	Rating       float64
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Provider, error) {
	if cmd.Name == "" || len(cmd.ServiceTypes) == 0 {
		return nil, ErrBadRequest
	}
	now := time.Now()
	p := &Provider{
		ID:           types.ID(uuid.NewString()),
		Name:         cmd.Name,
		ServiceTypes: cmd.ServiceTypes,
		Status:       StatusActive,
		Location:     cmd.Location,
		Rating:       cmd.Rating,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.indexAdd(ctx, p.ID, p.Location)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Provider, error) {
	return s.store.Get(ctx, id)
}

// SetAvailability flips a provider between active and inactive. Busy
// providers cannot change availability until their request finishes.
func (s *Service) SetAvailability(ctx context.Context, id types.ID, available bool) error {
	status := StatusInactive
	if available {
		status = StatusActive
	}
	ok, err := s.store.SetStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.store.Get(ctx, id); err != nil {
			return err
		}
		return ErrBusy
	}
	if s.index != nil {
		if available {
			p, err := s.store.Get(ctx, id)
			if err != nil {
				return err
			}
			s.indexAdd(ctx, id, p.Location)
		} else if err := s.index.Remove(ctx, id); err != nil {
			s.logger.Warn("geo index remove failed", zap.String("provider_id", string(id)), zap.Error(err))
		}
	}
	return nil
}

// Release frees a busy provider once its request completes or is cancelled.
// Releasing an already-active provider is a no-op.
func (s *Service) Release(ctx context.Context, id types.ID) error {
	if _, err := s.store.Release(ctx, id); err != nil {
		return err
	}
	return nil
}

func (s *Service) UpdateLocation(ctx context.Context, id types.ID, p types.Point) error {
	if err := s.store.UpdateLocation(ctx, id, p); err != nil {
		return err
	}
	s.indexAdd(ctx, id, p)
	return nil
}

func (s *Service) indexAdd(ctx context.Context, id types.ID, p types.Point) {
	if s.index == nil {
		return
	}
	if err := s.index.Add(ctx, id, p); err != nil {
		s.logger.Warn("geo index add failed", zap.String("provider_id", string(id)), zap.Error(err))
	}
}
