package model

import "time"

// PostRecommendation is one persisted row of the recommendation cache.
type PostRecommendation struct {
	PostID        int64     `json:"post_id"`
	RecommendedID int64     `json:"recommended_id"`
	Score         float64   `json:"score"`
	ComputedAt    time.Time `json:"computed_at"`
}

// ScoredPost is a recommendation as returned to callers
type ScoredPost struct {
	PostID int64   `json:"post_id"`
	Score  float64 `json:"score"`
}
