package weather

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

// ErrNoProvider is returned when the service has nothing to fetch from.
var ErrNoProvider = errors.New("no weather provider configured")

const defaultConcurrency = 8

// Service resolves positions to snapshots, consulting the cache first.
type Service struct {
	provider    Provider
	store       Store
	concurrency int
}

// NewService creates a new Service. store may be nil to disable caching;
// concurrency <= 0 selects the default fan-out width.
func NewService(provider Provider, store Store, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		provider:    provider,
		store:       store,
		concurrency: concurrency,
	}
}

// Snapshot returns the current weather at pos.
func (s *Service) Snapshot(ctx context.Context, pos Position) (Snapshot, error) {
	if s.provider == nil {
		return Snapshot{}, ErrNoProvider
	}

	key := pos.Key()
	if s.store != nil {
		if snap, err := s.store.GetSnapshot(key); err == nil {
			snap.Position = pos
			return snap, nil
		}
	}

	snap, err := s.provider.Fetch(ctx, pos)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", s.provider.Name(), err)
	}

	if s.store != nil {
		s.store.SaveSnapshot(key, snap)
	}
	return snap, nil
}

// Snapshots fetches the weather for every position concurrently. The result
// is index-aligned with positions. If any lookup fails the whole call fails
// and the outstanding lookups are cancelled.
func (s *Service) Snapshots(ctx context.Context, positions []Position) ([]Snapshot, error) {
	out := make([]Snapshot, len(positions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, pos := range positions {
		i, pos := i, pos
		g.Go(func() error {
			snap, err := s.Snapshot(gctx, pos)
			if err != nil {
				return fmt.Errorf("waypoint %d (%s): %w", i, pos.Key(), err)
			}
			out[i] = snap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("ERROR: weather lookup failed for %d positions: %v", len(positions), err)
		return nil, err
	}
	return out, nil
}

// PruneCache drops expired cache entries and reports how many were removed.
func (s *Service) PruneCache() int {
	if s.store == nil {
		return 0
	}
	return s.store.Prune()
}
