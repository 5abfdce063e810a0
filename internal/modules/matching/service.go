// Package matching selects an eligible provider for a pending request and
// performs the atomic assignment.
package matching

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"roadassist/internal/config"
	"roadassist/internal/modules/location"
	"roadassist/internal/modules/provider"
	"roadassist/internal/modules/request"
	"roadassist/internal/observability"
	"roadassist/internal/types"
)

// ErrNoProvider means matching found no eligible provider. The request stays
// pending; this is an expected outcome, not an application failure.
var ErrNoProvider = errors.New("no provider available")

// NearbyIndex narrows the candidate pool to providers near a point. Optional:
// without one the matcher scans the store and filters by distance itself.
type NearbyIndex interface {
	Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error)
}

// Requests is the slice of the request service the matcher drives.
type Requests interface {
	Get(ctx context.Context, id types.ID) (*request.Request, error)
	Assign(ctx context.Context, cmd request.AssignCommand) error
	ListPending(ctx context.Context) ([]*request.Request, error)
}

type Service struct {
	providers provider.Store
	requests  Requests
	index     NearbyIndex
	cfg       config.MatchingConfig
	logger    *zap.Logger
}

func NewService(providers provider.Store, requests Requests, index NearbyIndex, cfg config.MatchingConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{providers: providers, requests: requests, index: index, cfg: cfg, logger: logger}
}

type candidate struct {
	p    *provider.Provider
	dist float64
}

// Assign finds the nearest eligible provider and binds it to the request.
// Eligible means active, offering the request's service type, and within the
// configured radius. Candidates are tried nearest first (ties broken by
// provider id); a candidate lost to a concurrent claim is skipped.
func (s *Service) Assign(ctx context.Context, requestID types.ID) (types.ID, error) {
	r, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return "", err
	}
	if r.Status != request.StatusPending {
		return "", request.ErrInvalidState
	}

	cands, err := s.candidates(ctx, string(r.ServiceType), r.Location.Point)
	if err != nil {
		return "", err
	}

	for _, c := range cands {
		// Re-check immediately before committing: the request may have been
		// cancelled while we were searching.
		cur, err := s.requests.Get(ctx, requestID)
		if err != nil {
			return "", err
		}
		if cur.Status != request.StatusPending {
			return "", request.ErrInvalidState
		}

		ok, err := s.providers.Claim(ctx, c.p.ID, requestID)
		if err != nil {
			return "", err
		}
		if !ok {
			continue // lost the claim race, next candidate
		}

		err = s.requests.Assign(ctx, request.AssignCommand{RequestID: requestID, ProviderID: c.p.ID})
		if err != nil {
			if _, relErr := s.providers.Release(ctx, c.p.ID); relErr != nil {
				s.logger.Warn("release after failed assign", zap.String("provider_id", string(c.p.ID)), zap.Error(relErr))
			}
			return "", err
		}

		observability.MatchesTotal.Inc()
		s.logger.Info("provider assigned",
			zap.String("request_id", string(requestID)),
			zap.String("provider_id", string(c.p.ID)),
			zap.Float64("distance_km", c.dist),
		)
		return c.p.ID, nil
	}

	observability.NoProviderTotal.Inc()
	return "", ErrNoProvider
}

// candidates returns eligible providers sorted nearest first, ties by id.
func (s *Service) candidates(ctx context.Context, serviceType string, at types.Point) ([]candidate, error) {
	var pool []*provider.Provider

	if s.index != nil {
		ids, err := s.index.Nearby(ctx, at, s.cfg.RadiusKm)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			p, err := s.providers.Get(ctx, id)
			if errors.Is(err, provider.ErrNotFound) {
				continue // stale index entry
			}
			if err != nil {
				return nil, err
			}
			pool = append(pool, p)
		}
	} else {
		var err error
		pool, err = s.providers.ListActiveByServiceType(ctx, serviceType)
		if err != nil {
			return nil, err
		}
	}

	out := make([]candidate, 0, len(pool))
	for _, p := range pool {
		if p.Status != provider.StatusActive || !p.Offers(serviceType) {
			continue
		}
		d := location.DistanceKm(at, p.Location)
		if d > s.cfg.RadiusKm {
			continue
		}
		out = append(out, candidate{p: p, dist: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].dist != out[j].dist {
			return out[i].dist < out[j].dist
		}
		return out[i].p.ID < out[j].p.ID
	})
	return out, nil
}

// RunSweep periodically retries assignment for requests that have sat in
// pending longer than the configured delay. It runs until ctx is cancelled.
func (s *Service) RunSweep(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context) {
	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		s.logger.Warn("assign sweep list failed", zap.Error(err))
		return
	}
	cutoff := time.Now().Add(-s.cfg.AssignAfter)
	for _, r := range pending {
		if r.UpdatedAt.After(cutoff) {
			continue
		}
		_, err := s.Assign(ctx, r.ID)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoProvider):
			s.logger.Debug("no provider available", zap.String("request_id", string(r.ID)))
		case errors.Is(err, request.ErrInvalidState):
			// request changed state since listing; skip
		default:
			s.logger.Warn("sweep assign failed", zap.String("request_id", string(r.ID)), zap.Error(err))
		}
	}
}
