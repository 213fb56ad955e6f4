package groups

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gcbaptista/tagsearch/config"
	"github.com/gcbaptista/tagsearch/internal/cache"
	"github.com/gcbaptista/tagsearch/model"
	"github.com/gcbaptista/tagsearch/services"
)

// CacheMergedGroups is the cache instance name for merged views
const CacheMergedGroups = "merged_groups"

// Store is the slice of storage the group service reads from.
type Store interface {
	GroupsWithMembers(ctx context.Context, minMembers int) ([]model.GroupWithMembers, error)
}

// view is one computed, unordered merge result for a source filter.
type view struct {
	merged    []model.MergedGroup
	rawCounts map[string]int
}

// Service implements services.GroupLister.
type Service struct {
	store    Store
	views    *cache.TTL[string, *view]
	settings config.GroupsConfig
	logger   zerolog.Logger
}

var _ services.GroupLister = (*Service)(nil)

// NewService creates a group Service with its merged view cache registered for reset.
func NewService(store Store, cacheCfg config.CacheConfig, settings config.GroupsConfig, registry *cache.Registry, logger zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	views, err := cache.NewTTL[string, *view](CacheMergedGroups, cacheCfg.MergedGroupsSize, cacheCfg.MergedGroupsTTL)
	if err != nil {
		return nil, err
	}
	if registry != nil {
		registry.Register(views)
	}
	return &Service{
		store:    store,
		views:    views,
		settings: settings,
		logger:   logger.With().Str("component", "groups").Logger(),
	}, nil
}

// MergedGroups returns one ordered page of merged groups for the optional source filter.
func (s *Service) MergedGroups(ctx context.Context, req services.MergedGroupsRequest) (*services.MergedGroupsResult, error) {
	req = s.normalize(req)

	v, err := s.view(ctx, req.SourceType)
	if err != nil {
		return nil, err
	}

	ordered := make([]model.MergedGroup, len(v.merged))
	copy(ordered, v.merged)
	sortMerged(ordered, req.Order, req.Seed)

	page := services.NewPage(req.Page, req.PageSize, len(ordered))
	from, to := page.Bounds()

	result := &services.MergedGroupsResult{
		Page:              page,
		Groups:            ordered[from:to],
		RawCountsBySource: v.rawCounts,
	}
	if req.Order == services.OrderRandom {
		result.Seed = req.Seed
	}
	return result, nil
}

// DistinctCount returns the number of distinct fingerprints across every source.
func (s *Service) DistinctCount(ctx context.Context) (int, error) {
	v, err := s.view(ctx, "")
	if err != nil {
		return 0, err
	}
	return len(v.merged), nil
}

func (s *Service) normalize(req services.MergedGroupsRequest) services.MergedGroupsRequest {
	req.SourceType = strings.TrimSpace(req.SourceType)
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

// view returns the merged groups for a source filter, from cache when fresh.
// Raw counts always cover every source.
func (s *Service) view(ctx context.Context, sourceType string) (*view, error) {
	if v, ok := s.views.Get(sourceType); ok {
		return v, nil
	}

	all, err := s.store.GroupsWithMembers(ctx, MinMembers)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	filtered := all
	if sourceType != "" {
		filtered = make([]model.GroupWithMembers, 0, len(all))
		for _, g := range all {
			if g.SourceType == sourceType {
				filtered = append(filtered, g)
			}
		}
	}

	v := &view{
		merged:    Merge(filtered, s.settings.PreviewSize),
		rawCounts: RawCounts(all),
	}
	s.views.Set(sourceType, v)

	s.logger.Debug().
		Str("source_type", sourceType).
		Int("groups", len(filtered)).
		Int("merged", len(v.merged)).
		Msg("computed merged groups")
	return v, nil
}

// sortMerged orders in place. newest/oldest use the lowest constituent group id.
func sortMerged(groups []model.MergedGroup, order services.Order, seed string) {
	switch order {
	case services.OrderOldest:
		sort.Slice(groups, func(i, j int) bool { return groups[i].MinGroupID < groups[j].MinGroupID })

	case services.OrderLargest:
		sort.Slice(groups, func(i, j int) bool {
			if groups[i].PostCount != groups[j].PostCount {
				return groups[i].PostCount > groups[j].PostCount
			}
			return groups[i].MinGroupID > groups[j].MinGroupID
		})

	case services.OrderRandom:
		sort.Slice(groups, func(i, j int) bool {
			ri := xxhash.Sum64String(seed + ":" + groups[i].Fingerprint)
			rj := xxhash.Sum64String(seed + ":" + groups[j].Fingerprint)
			if ri != rj {
				return ri < rj
			}
			return groups[i].Fingerprint < groups[j].Fingerprint
		})

	default:
		sort.Slice(groups, func(i, j int) bool { return groups[i].MinGroupID > groups[j].MinGroupID })
	}
}
