// Package stats serves corpus-wide counters, persisted as a blob and refreshed on age.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/gcbaptista/tagsearch/internal/errors"
	"github.com/gcbaptista/tagsearch/internal/persistence"
	"github.com/gcbaptista/tagsearch/model"
	"github.com/gcbaptista/tagsearch/services"
)

// Store provides the raw counters and the settings table the blob lives in.
type Store interface {
	persistence.KV
	CorpusCounts(ctx context.Context) (*model.CorpusStats, error)
}

// MergedCounter counts distinct group fingerprints.
type MergedCounter interface {
	DistinctCount(ctx context.Context) (int, error)
}

// Service implements services.StatsProvider
type Service struct {
	store  Store
	merged MergedCounter
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger

	// serializes recomputation so concurrent stale reads compute once
	mu sync.Mutex
}

var _ services.StatsProvider = (*Service)(nil)

// NewService creates a stats service whose blob is trusted for ttl.
func NewService(store Store, merged MergedCounter, ttl time.Duration, logger zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if merged == nil {
		return nil, fmt.Errorf("merged group counter cannot be nil")
	}
	return &Service{
		store:  store,
		merged: merged,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With().Str("component", "stats").Logger(),
	}, nil
}

// CorpusStats returns the persisted blob while it is younger than the TTL, and
// recomputes it otherwise or when refresh is set.
func (s *Service) CorpusStats(ctx context.Context, refresh bool) (*model.CorpusStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !refresh {
		cached, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		if cached != nil && s.now().Sub(cached.ComputedAt) <= s.ttl {
			return cached, nil
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := persistence.SaveJSON(ctx, s.store, persistence.KeyCorpusStats, stats); err != nil {
		// the fresh numbers are still correct; only the next read pays again
		s.logger.Warn().Err(err).Msg("failed to persist corpus statistics")
	}
	return stats, nil
}

func (s *Service) load(ctx context.Context) (*model.CorpusStats, error) {
	var stats model.CorpusStats
	err := persistence.LoadJSON(ctx, s.store, persistence.KeyCorpusStats, &stats)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable corpus statistics blob")
		return nil, nil
	}
	return &stats, nil
}

func (s *Service) compute(ctx context.Context) (*model.CorpusStats, error) {
	start := time.Now()

	stats, err := s.store.CorpusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count corpus: %w", err)
	}
	merged, err := s.merged.DistinctCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count merged groups: %w", err)
	}
	stats.MergedGroups = merged
	stats.ComputedAt = s.now().UTC()

	s.logger.Debug().
		Int("posts", stats.Posts).
		Int("tags", stats.Tags).
		Int("merged_groups", merged).
		Dur("elapsed", time.Since(start)).
		Msg("corpus statistics computed")
	return stats, nil
}
