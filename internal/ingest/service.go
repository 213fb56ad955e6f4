// Package ingest writes posts and groups and invalidates everything derived from them.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/gcbaptista/tagsearch/internal/errors"
	"github.com/gcbaptista/tagsearch/model"
	"github.com/gcbaptista/tagsearch/services"
)

// DefaultBatchSize bounds how many posts are written per transaction.
const DefaultBatchSize = 500

// Store is the storage surface ingestion writes through.
type Store interface {
	UpsertPosts(ctx context.Context, posts []model.PostInput) ([]int64, error)
	UpsertGroup(ctx context.Context, group model.GroupInput) (int64, error)
	RefreshTagStats(ctx context.Context) error
	ClearRecommendations(ctx context.Context) (int64, error)
}

// Service implements services.Ingester.
type Service struct {
	store     Store
	caches    services.CacheResetter
	batchSize int
	logger    zerolog.Logger
}

var _ services.Ingester = (*Service)(nil)

// NewService creates an ingest Service. caches is reset after every successful write.
func NewService(store Store, caches services.CacheResetter, logger zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if caches == nil {
		return nil, fmt.Errorf("cache resetter cannot be nil")
	}
	return &Service{
		store:     store,
		caches:    caches,
		batchSize: DefaultBatchSize,
		logger:    logger.With().Str("component", "ingest").Logger(),
	}, nil
}

// ImportPosts validates and upserts posts, replacing each post's tag set. Post ids are
// returned in input order. Tag statistics are refreshed once for the whole call.
func (s *Service) ImportPosts(ctx context.Context, posts []model.PostInput) (*services.ImportResult, error) {
	if len(posts) == 0 {
		return nil, apperrors.NewValidationError("posts", "at least one post is required")
	}

	normalized, err := normalizePosts(posts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ids := make([]int64, 0, len(normalized))
	for i := 0; i < len(normalized); i += s.batchSize {
		end := min(i+s.batchSize, len(normalized))
		batchIDs, err := s.store.UpsertPosts(ctx, normalized[i:end])
		if err != nil {
			err = fmt.Errorf("failed to import posts %d-%d: %w", i, end-1, err)
			if len(ids) > 0 {
				// Earlier batches are committed.
				if _, ierr := s.invalidate(ctx); ierr != nil {
					s.logger.Error().Err(ierr).Msg("invalidation after partial import failed")
				}
				s.logger.Warn().Err(err).Int("committed_posts", len(ids)).Msg("partial post import")
			}
			return nil, err
		}
		ids = append(ids, batchIDs...)
	}

	cleared, err := s.invalidate(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("posts", len(ids)).
		Int64("cleared_recommendations", cleared).
		Dur("elapsed", time.Since(start)).
		Msg("posts imported")

	return &services.ImportResult{PostIDs: ids, ClearedRecommendations: cleared}, nil
}

// ImportGroup upserts a group by (source type, source id) and replaces its ordered
// membership. Every hash must belong to an existing post.
func (s *Service) ImportGroup(ctx context.Context, group model.GroupInput) (int64, error) {
	g, err := normalizeGroup(group)
	if err != nil {
		return 0, err
	}

	id, err := s.store.UpsertGroup(ctx, g)
	if err != nil {
		return 0, err
	}

	cleared, err := s.invalidate(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Int64("group_id", id).
		Str("source_type", g.SourceType).
		Str("source_id", g.SourceID).
		Int("members", len(g.PostHashes)).
		Int64("cleared_recommendations", cleared).
		Msg("group imported")
	return id, nil
}

// invalidate recomputes tag statistics and drops every derived cache: process-local
// caches first, then persisted recommendation rows.
func (s *Service) invalidate(ctx context.Context) (int64, error) {
	if err := s.store.RefreshTagStats(ctx); err != nil {
		return 0, fmt.Errorf("failed to refresh tag statistics: %w", err)
	}
	s.caches.ResetCaches()
	cleared, err := s.store.ClearRecommendations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear recommendation cache: %w", err)
	}
	return cleared, nil
}

func normalizePosts(posts []model.PostInput) ([]model.PostInput, error) {
	out := make([]model.PostInput, len(posts))
	seen := make(map[string]int, len(posts))

	for i, p := range posts {
		hash := strings.ToLower(strings.TrimSpace(p.Hash))
		if hash == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("posts[%d].hash", i), "cannot be empty")
		}
		if prev, dup := seen[hash]; dup {
			return nil, apperrors.NewValidationError(fmt.Sprintf("posts[%d].hash", i),
				fmt.Sprintf("duplicate of posts[%d]", prev))
		}
		seen[hash] = i
		if p.FileSize < 0 {
			return nil, apperrors.NewValidationError(fmt.Sprintf("posts[%d].file_size", i), "cannot be negative")
		}

		tags, err := normalizeTags(p.Tags)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("posts[%d].tags", i), err.Error())
		}
		out[i] = model.PostInput{Hash: hash, FileSize: p.FileSize, Tags: tags}
	}
	return out, nil
}

// normalizeTags lowercases names, drops blanks and duplicates, and canonicalizes
// categories. An empty category is kept empty so an existing tag keeps its own.
func normalizeTags(tags []model.TagInput) ([]model.TagInput, error) {
	out := make([]model.TagInput, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, t := range tags {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" {
			continue
		}
		if strings.Contains(name, ",") {
			return nil, fmt.Errorf("tag '%s' cannot contain a comma", name)
		}
		if strings.Contains(name, "*") {
			return nil, fmt.Errorf("tag '%s' cannot contain '*'", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		category := ""
		if strings.TrimSpace(t.Category) != "" {
			c, err := model.ParseTagCategory(t.Category)
			if err != nil {
				return nil, err
			}
			category = string(c)
		}
		out = append(out, model.TagInput{Name: name, Category: category})
	}
	return out, nil
}

func normalizeGroup(g model.GroupInput) (model.GroupInput, error) {
	g.SourceType = strings.ToLower(strings.TrimSpace(g.SourceType))
	g.SourceID = strings.TrimSpace(g.SourceID)
	g.Title = strings.TrimSpace(g.Title)

	if g.SourceType == "" {
		return g, apperrors.NewValidationError("source_type", "cannot be empty")
	}
	if g.SourceID == "" {
		return g, apperrors.NewValidationError("source_id", "cannot be empty")
	}
	if len(g.PostHashes) == 0 {
		return g, apperrors.NewValidationError("post_hashes", "at least one post is required")
	}

	hashes := make([]string, len(g.PostHashes))
	seen := make(map[string]struct{}, len(g.PostHashes))
	for i, h := range g.PostHashes {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			return g, apperrors.NewValidationError(fmt.Sprintf("post_hashes[%d]", i), "cannot be empty")
		}
		if _, dup := seen[h]; dup {
			return g, apperrors.NewValidationError(fmt.Sprintf("post_hashes[%d]", i), "duplicate post in group")
		}
		seen[h] = struct{}{}
		hashes[i] = h
	}
	g.PostHashes = hashes
	return g, nil
}
