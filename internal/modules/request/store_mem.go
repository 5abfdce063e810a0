package request

import (
	"context"
	"sort"
	"sync"
	"time"

	"roadassist/internal/types"
)

// MemStore is an in-memory Store with the same conditional-update semantics
// as the Postgres implementation. Used by unit tests and local runs.
type MemStore struct {
	mu       sync.Mutex
	requests map[types.ID]*Request
	events   []*Event
	nextID   int64
}

func NewMemStore() *MemStore {
	return &MemStore{requests: make(map[types.ID]*Request)}
}

func (s *MemStore) Create(ctx context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneRequest(r)
	s.requests[r.ID] = cp
	return nil
}

func (s *MemStore) Get(ctx context.Context, id types.ID) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRequest(r), nil
}

func (s *MemStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, providerID *types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return false, nil
	}
	if r.Status != from || r.StatusVersion != version {
		return false, nil
	}
	r.Status = to
	r.StatusVersion++
	if providerID != nil {
		p := *providerID
		r.ProviderID = &p
	}
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) SetAmount(ctx context.Context, id types.ID, amount types.Money) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Amount != nil {
		return false, nil
	}
	m := amount
	r.Amount = &m
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) ListByStatus(ctx context.Context, status Status, createdBefore time.Time) ([]*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Request
	for _, r := range s.requests {
		if r.Status != status {
			continue
		}
		if !createdBefore.IsZero() && !r.CreatedAt.Before(createdBefore) {
			continue
		}
		out = append(out, cloneRequest(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) AppendEvent(ctx context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := *e
	cp.ID = s.nextID
	s.events = append(s.events, &cp)
	return nil
}

// Events returns a copy of the recorded transition events.
func (s *MemStore) Events() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Event, len(s.events))
	for i, e := range s.events {
		cp := *e
		out[i] = &cp
	}
	return out
}

func cloneRequest(r *Request) *Request {
	cp := *r
	if r.ProviderID != nil {
		p := *r.ProviderID
		cp.ProviderID = &p
	}
	if r.Amount != nil {
		m := *r.Amount
		cp.Amount = &m
	}
	return &cp
}
