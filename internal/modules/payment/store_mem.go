package payment

import (
	"context"
	"sync"
	"time"

	"roadassist/internal/types"
)

// MemStore is an in-memory Store with the same conditional mark semantics as
// the Postgres implementation. Used by unit tests.
type MemStore struct {
	mu       sync.Mutex
	byRef    map[string]*Payment
	ordering []string
}

func NewMemStore() *MemStore {
	return &MemStore{byRef: make(map[string]*Payment)}
}

func (s *MemStore) Create(ctx context.Context, p *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range s.ordering {
		existing := s.byRef[ref]
		if existing.RequestID == p.RequestID &&
			(existing.Status == StatusPending || existing.Status == StatusSuccess) {
			return ErrDuplicate
		}
	}
	cp := *p
	s.byRef[p.Reference] = &cp
	s.ordering = append(s.ordering, p.Reference)
	return nil
}

func (s *MemStore) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byRef[reference]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) GetActiveByRequest(ctx context.Context, requestID types.ID) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.ordering) - 1; i >= 0; i-- {
		p := s.byRef[s.ordering[i]]
		if p.RequestID == requestID && (p.Status == StatusPending || p.Status == StatusSuccess) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) MarkSuccess(ctx context.Context, reference, method string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byRef[reference]
	if !ok || p.Status == StatusSuccess {
		return false, nil
	}
	p.Status = StatusSuccess
	if method != "" {
		p.Method = method
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) MarkFailed(ctx context.Context, reference string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byRef[reference]
	if !ok || p.Status != StatusPending {
		return false, nil
	}
	p.Status = StatusFailed
	p.UpdatedAt = time.Now()
	return true, nil
}
