package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gcbaptista/tagsearch/model"
)

// Order selects how a result list is sorted
type Order string

const (
	OrderRandom  Order = "random" // deterministic for a given seed
	OrderNewest  Order = "newest"
	OrderOldest  Order = "oldest"
	OrderLargest Order = "largest" // ties broken by newest
)

// Orders lists every accepted order
var Orders = []Order{OrderRandom, OrderNewest, OrderOldest, OrderLargest}

// ParseOrder validates an order name. Empty input means newest.
func ParseOrder(s string) (Order, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return OrderNewest, nil
	}
	for _, o := range Orders {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown order '%s'", s)
}

// Page describes the slice of a result list that was returned.
type Page struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPage computes page metadata for total items.
func NewPage(page, pageSize, total int) Page {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Page{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// Bounds returns the [start, end) indexes of the page within total items.
func (p Page) Bounds() (int, int) {
	start := (p.Page - 1) * p.PageSize
	if start > p.Total {
		start = p.Total
	}
	end := start + p.PageSize
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// SearchRequest is a resolved search: literal tag names plus already expanded
// wildcard groups. A post must carry every Include tag, at least one tag of each
// WildcardGroups entry, and none of the Exclude tags.
type SearchRequest struct {
	Include        []string
	Exclude        []string
	WildcardGroups [][]string
	Order          Order
	Seed           string
	Page           int
	PageSize       int
}

// SearchQuery is a raw tag query as typed by a user.
type SearchQuery struct {
	Query    string
	Order    Order
	Seed     string
	Page     int
	PageSize int
}

type SearchResult struct {
	Page

	PostIDs     []int64             `json:"post_ids"`
	Order       Order               `json:"order"`
	Seed        string              `json:"seed,omitempty"`
	UnknownTags []string            `json:"unknown_tags,omitempty"`
	Expansions  map[string][]string `json:"expansions,omitempty"`
	Took        int64               `json:"took"` // milliseconds
	QueryID     string              `json:"query_id"`
}

// MergedGroupsRequest selects a page of merged groups
type MergedGroupsRequest struct {
	SourceType string
	Order      Order
	Seed       string
	Page       int
	PageSize   int
}

// MergedGroupsResult carries one page of merged groups. Page.Total counts distinct
// fingerprints after filtering; RawCountsBySource counts unmerged groups with at
// least two posts across every source and is never filtered.
type MergedGroupsResult struct {
	Page

	Groups            []model.MergedGroup `json:"groups"`
	Seed              string              `json:"seed,omitempty"`
	RawCountsBySource map[string]int      `json:"raw_counts_by_source"`
}

// RecommendationSource tells whether recommendations came from the persisted cache
type RecommendationSource string

const (
	SourceCache    RecommendationSource = "cache"
	SourceComputed RecommendationSource = "computed"
)

type RecommendationResult struct {
	PostID     int64                `json:"post_id"`
	Items      []model.ScoredPost   `json:"recommendations"`
	Source     RecommendationSource `json:"source"`
	ComputedAt time.Time            `json:"computed_at"`
}

// ImportResult summarizes a bulk post import
type ImportResult struct {
	PostIDs                []int64 `json:"post_ids"`
	ClearedRecommendations int64   `json:"cleared_recommendations"`
}

// Searcher resolves tag queries to ordered, paginated post ids
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)
	SearchQuery(ctx context.Context, q SearchQuery) (*SearchResult, error)
	ExpandWildcard(ctx context.Context, pattern string) ([]string, error)
}

// GroupLister serves deduplicated group views
type GroupLister interface {
	MergedGroups(ctx context.Context, req MergedGroupsRequest) (*MergedGroupsResult, error)
}

// Recommender serves per-post recommendations
type Recommender interface {
	Recommend(ctx context.Context, postID int64, limit int) (*RecommendationResult, error)
	ClearCache(ctx context.Context) (int64, error)
}

// Pregenerator controls the bulk recommendation pregeneration job
type Pregenerator interface {
	StartPregeneration() (model.JobProgress, error)
	PregenerationProgress() model.JobProgress
}

// Ingester writes posts and groups and performs post-mutation invalidation
type Ingester interface {
	ImportPosts(ctx context.Context, posts []model.PostInput) (*ImportResult, error)
	ImportGroup(ctx context.Context, group model.GroupInput) (int64, error)
}

// StatsProvider serves corpus statistics
type StatsProvider interface {
	CorpusStats(ctx context.Context, refresh bool) (*model.CorpusStats, error)
}

// TagSuggester proposes known tags close to an unknown one
type TagSuggester interface {
	Suggest(ctx context.Context, term string, limit int) ([]model.Tag, error)
}

// CacheResetter invalidates every process-local cache
type CacheResetter interface {
	ResetCaches()
}
