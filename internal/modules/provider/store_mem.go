package provider

import (
	"context"
	"sort"
	"sync"
	"time"

	"roadassist/internal/types"
)

// MemStore is an in-memory Store mirroring the conditional semantics of the
// Postgres implementation. Used by unit tests.
type MemStore struct {
	mu        sync.Mutex
	providers map[types.ID]*Provider
}

func NewMemStore() *MemStore {
	return &MemStore{providers: make(map[types.ID]*Provider)}
}

func (s *MemStore) Create(ctx context.Context, p *Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ID] = cloneProvider(p)
	return nil
}

func (s *MemStore) Get(ctx context.Context, id types.ID) (*Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProvider(p), nil
}

func (s *MemStore) ListActiveByServiceType(ctx context.Context, serviceType string) ([]*Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Provider
	for _, p := range s.providers {
		if p.Status == StatusActive && p.Offers(serviceType) {
			out = append(out, cloneProvider(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Claim(ctx context.Context, id, requestID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[id]
	if !ok || p.Status != StatusActive {
		return false, nil
	}
	p.Status = StatusBusy
	r := requestID
	p.CurrentRequest = &r
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) Release(ctx context.Context, id types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[id]
	if !ok || p.Status != StatusBusy {
		return false, nil
	}
	p.Status = StatusActive
	p.CurrentRequest = nil
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) SetStatus(ctx context.Context, id types.ID, status Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[id]
	if !ok || p.Status == StatusBusy {
		return false, nil
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) UpdateLocation(ctx context.Context, id types.ID, pt types.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[id]
	if !ok {
		return ErrNotFound
	}
	p.Location = pt
	p.UpdatedAt = time.Now()
	return nil
}

func cloneProvider(p *Provider) *Provider {
	cp := *p
	cp.ServiceTypes = append([]string(nil), p.ServiceTypes...)
	if p.CurrentRequest != nil {
		r := *p.CurrentRequest
		cp.CurrentRequest = &r
	}
	return &cp
}
