// Package recommend computes content-based recommendations from tag overlap.
//
// The score of a candidate is the sum of IDF weights over the tags it shares with
// the source post, restricted to tags present on more than one post. Posts that
// share a group with the source are variants, not recommendations, and are
// excluded. Ranked lists are persisted with a computed-at stamp and served until
// they are older than the configured TTL.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gcbaptista/tagsearch/config"
	"github.com/gcbaptista/tagsearch/internal/jobs"
	"github.com/gcbaptista/tagsearch/internal/metrics"
	"github.com/gcbaptista/tagsearch/model"
	"github.com/gcbaptista/tagsearch/services"
)

// Store is the slice of storage the engine reads from and writes to.
type Store interface {
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	PostTagIDs(ctx context.Context, postID int64) ([]int64, error)
	TagsByID(ctx context.Context, ids []int64) ([]model.Tag, error)
	PostTagsForTags(ctx context.Context, tagIDs []int64) ([]model.PostTag, error)
	GroupMates(ctx context.Context, postID int64) ([]int64, error)
	EligiblePostIDs(ctx context.Context) ([]int64, error)
	Recommendations(ctx context.Context, postID int64) ([]model.PostRecommendation, error)
	ReplaceRecommendations(ctx context.Context, postID int64, recs []model.PostRecommendation) error
	ClearRecommendations(ctx context.Context) (int64, error)
}

// Engine implements services.Recommender and services.Pregenerator.
type Engine struct {
	store    Store
	settings config.RecommendConfig
	runner   *jobs.Runner
	inflight singleflight.Group
	now      func() time.Time
	logger   zerolog.Logger
}

var (
	_ services.Recommender  = (*Engine)(nil)
	_ services.Pregenerator = (*Engine)(nil)
)

// NewEngine creates an Engine. runner drives pregeneration and may be shared with
// nothing else.
func NewEngine(store Store, runner *jobs.Runner, settings config.RecommendConfig, logger zerolog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	return &Engine{
		store:    store,
		settings: settings,
		runner:   runner,
		now:      time.Now,
		logger:   logger.With().Str("component", "recommend").Logger(),
	}, nil
}

type computed struct {
	items      []model.ScoredPost
	computedAt time.Time
}

// Recommend returns up to limit posts similar to postID, from the persisted cache
// when fresh, otherwise freshly computed and written back. Concurrent requests
// for the same post share one computation.
func (e *Engine) Recommend(ctx context.Context, postID int64, limit int) (*services.RecommendationResult, error) {
	start := time.Now()
	limit = e.clampLimit(limit)

	if _, err := e.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	rows, err := e.store.Recommendations(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached recommendations: %w", err)
	}
	if len(rows) > 0 && e.fresh(rows[0].ComputedAt) {
		items := make([]model.ScoredPost, 0, min(limit, len(rows)))
		for _, r := range rows {
			if len(items) == limit {
				break
			}
			items = append(items, model.ScoredPost{PostID: r.RecommendedID, Score: r.Score})
		}
		metrics.RecommendationDuration.WithLabelValues(string(services.SourceCache)).Observe(time.Since(start).Seconds())
		return &services.RecommendationResult{
			PostID:     postID,
			Items:      items,
			Source:     services.SourceCache,
			ComputedAt: rows[0].ComputedAt,
		}, nil
	}

	v, err, _ := e.inflight.Do(strconv.FormatInt(postID, 10), func() (interface{}, error) {
		// shared by every waiter, so not tied to this caller's cancellation
		return e.refresh(context.WithoutCancel(ctx), postID, len(rows) > 0)
	})
	if err != nil {
		return nil, err
	}
	c := v.(*computed)

	items := c.items
	if len(items) > limit {
		items = items[:limit]
	}
	metrics.RecommendationDuration.WithLabelValues(string(services.SourceComputed)).Observe(time.Since(start).Seconds())
	return &services.RecommendationResult{
		PostID:     postID,
		Items:      append(make([]model.ScoredPost, 0, len(items)), items...),
		Source:     services.SourceComputed,
		ComputedAt: c.computedAt,
	}, nil
}

// refresh recomputes and overwrites the persisted rows for postID. Empty results
// are not stored, but stale rows are removed.
func (e *Engine) refresh(ctx context.Context, postID int64, hadRows bool) (*computed, error) {
	items, err := e.Compute(ctx, postID)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC().Truncate(time.Millisecond)

	if len(items) > 0 || hadRows {
		recs := make([]model.PostRecommendation, len(items))
		for i, it := range items {
			recs[i] = model.PostRecommendation{PostID: postID, RecommendedID: it.PostID, Score: it.Score, ComputedAt: now}
		}
		if err := e.store.ReplaceRecommendations(ctx, postID, recs); err != nil {
			return nil, fmt.Errorf("failed to store recommendations: %w", err)
		}
	}
	return &computed{items: items, computedAt: now}, nil
}

// Compute ranks candidates for postID without touching the persisted cache. The
// result holds at most StoredLimit entries, sorted by score descending then post id
// ascending. A post without connective tags yields an empty list.
func (e *Engine) Compute(ctx context.Context, postID int64) ([]model.ScoredPost, error) {
	tagIDs, err := e.store.PostTagIDs(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags of post %d: %w", postID, err)
	}
	if len(tagIDs) == 0 {
		return []model.ScoredPost{}, nil
	}

	tags, err := e.store.TagsByID(ctx, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag weights: %w", err)
	}
	weights := make(map[int64]float64, len(tags))
	qualifying := make([]int64, 0, len(tags))
	for _, t := range tags {
		if t.Connective() {
			weights[t.ID] = t.IDFWeight
			qualifying = append(qualifying, t.ID)
		}
	}
	if len(qualifying) == 0 {
		return []model.ScoredPost{}, nil
	}

	pairs, err := e.store.PostTagsForTags(ctx, qualifying)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	mates, err := e.store.GroupMates(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group mates: %w", err)
	}

	return rank(postID, pairs, weights, mates, e.settings.StoredLimit), nil
}

// rank sums weights per candidate and returns the top limit. Pairs are summed in
// (post, tag) order so equal inputs always produce bit-identical scores.
func rank(source int64, pairs []model.PostTag, weights map[int64]float64, mates []int64, limit int) []model.ScoredPost {
	excluded := make(map[int64]struct{}, len(mates)+1)
	excluded[source] = struct{}{}
	for _, m := range mates {
		excluded[m] = struct{}{}
	}

	sorted := append([]model.PostTag(nil), pairs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].PostID != sorted[j].PostID {
			return sorted[i].PostID < sorted[j].PostID
		}
		return sorted[i].TagID < sorted[j].TagID
	})

	var items []model.ScoredPost
	for _, pt := range sorted {
		if _, skip := excluded[pt.PostID]; skip {
			continue
		}
		if n := len(items); n > 0 && items[n-1].PostID == pt.PostID {
			items[n-1].Score += weights[pt.TagID]
			continue
		}
		items = append(items, model.ScoredPost{PostID: pt.PostID, Score: weights[pt.TagID]})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].PostID < items[j].PostID
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []model.ScoredPost{}
	}
	return items
}

// ClearCache drops every persisted recommendation row.
func (e *Engine) ClearCache(ctx context.Context) (int64, error) {
	n, err := e.store.ClearRecommendations(ctx)
	if err != nil {
		return 0, err
	}
	e.logger.Info().Int64("rows", n).Msg("recommendation cache cleared")
	return n, nil
}

func (e *Engine) fresh(computedAt time.Time) bool {
	return e.now().Sub(computedAt) <= e.settings.TTL
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		limit = e.settings.DefaultLimit
	}
	if e.settings.MaxLimit > 0 && limit > e.settings.MaxLimit {
		limit = e.settings.MaxLimit
	}
	return limit
}
