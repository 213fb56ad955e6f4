// Package search resolves parsed tag queries into ordered, paginated post ids.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gcbaptista/tagsearch/config"
	"github.com/gcbaptista/tagsearch/internal/cache"
	"github.com/gcbaptista/tagsearch/internal/errors"
	"github.com/gcbaptista/tagsearch/internal/query"
	"github.com/gcbaptista/tagsearch/services"
)

// Store is the slice of storage the search service reads from.
type Store interface {
	query.TagMatcher
	TagIDsByName(ctx context.Context, names []string) (map[string]int64, error)
	AllPostIDs(ctx context.Context) ([]int64, error)
	PostIDsForTag(ctx context.Context, tagID int64) ([]int64, error)
	PostFileSizes(ctx context.Context, ids []int64) (map[int64]int64, error)
}

// Cache instance names
const (
	CacheTagIDs   = "tag_ids"
	CachePostSets = "post_sets"
	CacheResults  = "search_results"
)

// Caches are the memoization layers owned by the search service.
type Caches struct {
	TagIDs   *cache.LRU[string, int64]   // tag name -> id, no expiry
	PostSets *cache.TTL[int64, []int64]  // tag id -> ascending post ids
	Results  *cache.TTL[string, []int64] // canonical request -> full ordered result
}

// NewCaches builds the search caches and registers them for global reset.
func NewCaches(cfg config.CacheConfig, registry *cache.Registry) (*Caches, error) {
	tagIDs, err := cache.NewLRU[string, int64](CacheTagIDs, cfg.TagIDsSize)
	if err != nil {
		return nil, err
	}
	postSets, err := cache.NewTTL[int64, []int64](CachePostSets, cfg.PostSetsSize, cfg.PostSetsTTL)
	if err != nil {
		return nil, err
	}
	results, err := cache.NewTTL[string, []int64](CacheResults, cfg.ResultsSize, cfg.ResultsTTL)
	if err != nil {
		return nil, err
	}

	if registry != nil {
		registry.Register(tagIDs)
		registry.Register(postSets)
		registry.Register(results)
	}
	return &Caches{TagIDs: tagIDs, PostSets: postSets, Results: results}, nil
}

// Service implements services.Searcher.
type Service struct {
	store    Store
	caches   *Caches
	settings config.SearchConfig
	logger   zerolog.Logger
}

var _ services.Searcher = (*Service)(nil)

// NewService creates a new search Service.
func NewService(store Store, caches *Caches, settings config.SearchConfig, logger zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if caches == nil {
		return nil, fmt.Errorf("caches cannot be nil")
	}
	return &Service{
		store:    store,
		caches:   caches,
		settings: settings,
		logger:   logger.With().Str("component", "search").Logger(),
	}, nil
}

// SearchQuery parses a raw tag query, expands its wildcards and runs the search.
func (s *Service) SearchQuery(ctx context.Context, q services.SearchQuery) (*services.SearchResult, error) {
	parsed, err := query.Parse(q.Query)
	if err != nil {
		return nil, err
	}
	if n := len(parsed.Include) + len(parsed.Exclude); s.settings.MaxTerms > 0 && n > s.settings.MaxTerms {
		return nil, errors.NewValidationError("tags", fmt.Sprintf("query has %d terms, at most %d are allowed", n, s.settings.MaxTerms))
	}

	req := services.SearchRequest{
		Include:  parsed.IncludeLiterals(),
		Exclude:  parsed.ExcludeLiterals(),
		Order:    q.Order,
		Seed:     q.Seed,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	expansions := make(map[string][]string)
	var unmatched []string

	for _, pattern := range parsed.IncludeWildcards() {
		names, err := s.ExpandWildcard(ctx, pattern)
		if err != nil {
			return nil, err
		}
		expansions[pattern] = names
		if len(names) == 0 {
			unmatched = append(unmatched, pattern)
		}
		req.WildcardGroups = append(req.WildcardGroups, names)
	}
	for _, pattern := range parsed.ExcludeWildcards() {
		names, err := s.ExpandWildcard(ctx, pattern)
		if err != nil {
			return nil, err
		}
		expansions["-"+pattern] = names
		req.Exclude = append(req.Exclude, names...)
	}

	result, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	result.UnknownTags = append(result.UnknownTags, unmatched...)
	if len(expansions) > 0 {
		result.Expansions = expansions
	}
	return result, nil
}

// ExpandWildcard resolves a wildcard pattern to tag names, failing past the configured cap.
func (s *Service) ExpandWildcard(ctx context.Context, pattern string) ([]string, error) {
	return query.Expand(ctx, s.store, strings.ToLower(strings.TrimSpace(pattern)), s.settings.WildcardCap)
}

// Search runs a resolved search. The full ordered result is memoized so paging
// through it does not recompute set operations.
func (s *Service) Search(ctx context.Context, req services.SearchRequest) (*services.SearchResult, error) {
	start := time.Now()
	req = s.normalize(req)

	key := cacheKey(req)
	ids, hit := s.caches.Results.Get(key)
	var unknown []string
	if !hit {
		var err error
		ids, unknown, err = s.resolve(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(unknown) == 0 {
			s.caches.Results.Set(key, ids)
		}
	}

	page := services.NewPage(req.Page, req.PageSize, len(ids))
	from, to := page.Bounds()
	pageIDs := make([]int64, to-from)
	copy(pageIDs, ids[from:to])

	result := &services.SearchResult{
		Page:        page,
		PostIDs:     pageIDs,
		Order:       req.Order,
		UnknownTags: unknown,
		Took:        time.Since(start).Milliseconds(),
		QueryID:     uuid.New().String(),
	}
	if req.Order == services.OrderRandom {
		result.Seed = req.Seed
	}

	s.logger.Debug().
		Strs("include", req.Include).
		Strs("exclude", req.Exclude).
		Int("wildcard_groups", len(req.WildcardGroups)).
		Str("order", string(req.Order)).
		Int("total", page.Total).
		Bool("cached", hit).
		Msg("search")

	return result, nil
}

func (s *Service) normalize(req services.SearchRequest) services.SearchRequest {
	req.Include = normalizeNames(req.Include)
	req.Exclude = normalizeNames(req.Exclude)
	groups := make([][]string, 0, len(req.WildcardGroups))
	for _, g := range req.WildcardGroups {
		groups = append(groups, normalizeNames(g))
	}
	req.WildcardGroups = groups

	if req.Order == "" {
		req.Order = services.OrderNewest
	}
	if req.Order == services.OrderRandom && req.Seed == "" {
		req.Seed = uuid.New().String()[:8]
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = s.settings.DefaultPageSize
	}
	if s.settings.MaxPageSize > 0 && req.PageSize > s.settings.MaxPageSize {
		req.PageSize = s.settings.MaxPageSize
	}
	return req
}

// resolve computes the full ordered id list. Unknown include tags short-circuit to
// an empty result and are reported back; unknown exclude tags exclude nothing.
func (s *Service) resolve(ctx context.Context, req services.SearchRequest) ([]int64, []string, error) {
	names := make([]string, 0, len(req.Include)+len(req.Exclude))
	names = append(names, req.Include...)
	names = append(names, req.Exclude...)
	for _, g := range req.WildcardGroups {
		names = append(names, g...)
	}

	ids, err := s.tagIDs(ctx, names)
	if err != nil {
		return nil, nil, err
	}

	var unknown []string
	for _, name := range req.Include {
		if _, ok := ids[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return []int64{}, unknown, nil
	}

	var sets [][]int64
	for _, name := range req.Include {
		set, err := s.postSet(ctx, ids[name])
		if err != nil {
			return nil, nil, err
		}
		sets = append(sets, set)
	}
	for _, group := range req.WildcardGroups {
		var members [][]int64
		for _, name := range group {
			id, ok := ids[name]
			if !ok {
				continue
			}
			set, err := s.postSet(ctx, id)
			if err != nil {
				return nil, nil, err
			}
			members = append(members, set)
		}
		sets = append(sets, unionSorted(members))
	}

	var matched []int64
	if len(sets) == 0 {
		matched, err = s.store.AllPostIDs(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list posts: %w", err)
		}
	} else {
		matched = intersectAll(sets)
	}

	excluded := make(map[int64]struct{})
	for _, name := range req.Exclude {
		id, ok := ids[name]
		if !ok {
			continue
		}
		set, err := s.postSet(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		for _, postID := range set {
			excluded[postID] = struct{}{}
		}
	}
	if len(excluded) > 0 {
		kept := matched[:0]
		for _, postID := range matched {
			if _, ok := excluded[postID]; !ok {
				kept = append(kept, postID)
			}
		}
		matched = kept
	}

	if err := s.orderPosts(ctx, matched, req.Order, req.Seed); err != nil {
		return nil, nil, err
	}
	if matched == nil {
		matched = []int64{}
	}
	return matched, nil, nil
}

// tagIDs resolves names through the identifier cache, batching the misses.
func (s *Service) tagIDs(ctx context.Context, names []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(names))
	var misses []string
	for _, name := range names {
		if id, ok := s.caches.TagIDs.Get(name); ok {
			ids[name] = id
			continue
		}
		misses = append(misses, name)
	}
	if len(misses) == 0 {
		return ids, nil
	}

	found, err := s.store.TagIDsByName(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}
	for name, id := range found {
		ids[name] = id
		s.caches.TagIDs.Set(name, id)
	}
	return ids, nil
}

// postSet returns the ascending post ids for a tag. The slice is shared with the
// cache and must not be modified.
func (s *Service) postSet(ctx context.Context, tagID int64) ([]int64, error) {
	if set, ok := s.caches.PostSets.Get(tagID); ok {
		return set, nil
	}
	set, err := s.store.PostIDsForTag(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts for tag %d: %w", tagID, err)
	}
	s.caches.PostSets.Set(tagID, set)
	return set, nil
}

func normalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// cacheKey renders a request independent of term order and pagination.
func cacheKey(req services.SearchRequest) string {
	sorted := func(in []string) string {
		c := append([]string(nil), in...)
		sort.Strings(c)
		return strings.Join(c, ",")
	}

	groups := make([]string, 0, len(req.WildcardGroups))
	for _, g := range req.WildcardGroups {
		groups = append(groups, "("+sorted(g)+")")
	}
	sort.Strings(groups)

	var b strings.Builder
	b.WriteString("i=")
	b.WriteString(sorted(req.Include))
	b.WriteString("|e=")
	b.WriteString(sorted(req.Exclude))
	b.WriteString("|w=")
	b.WriteString(strings.Join(groups, ""))
	b.WriteString("|o=")
	b.WriteString(string(req.Order))
	if req.Order == services.OrderRandom {
		b.WriteString("|s=")
		b.WriteString(req.Seed)
	}
	return b.String()
}
