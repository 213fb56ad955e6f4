package model

import "time"

// CorpusStats is the derived-statistics blob persisted under a fixed settings key.
type CorpusStats struct {
	Posts            int                 `json:"posts"`
	Tags             int                 `json:"tags"`
	TagsByCategory   map[TagCategory]int `json:"tags_by_category"`
	Groups           int                 `json:"groups"`
	GroupsBySource   map[string]int      `json:"groups_by_source"`
	MergedGroups     int                 `json:"merged_groups"`
	RecommendedPosts int                 `json:"recommended_posts"`
	ComputedAt       time.Time           `json:"computed_at"`
}
