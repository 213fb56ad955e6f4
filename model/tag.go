package model

import (
	"fmt"
	"math"
	"strings"
)

// TagCategory classifies a tag
type TagCategory string

const (
	TagCategoryArtist    TagCategory = "artist"
	TagCategoryCharacter TagCategory = "character"
	TagCategoryCopyright TagCategory = "copyright"
	TagCategoryGeneral   TagCategory = "general"
	TagCategoryMeta      TagCategory = "meta"
)

// TagCategories lists every valid category in display order
var TagCategories = []TagCategory{
	TagCategoryArtist,
	TagCategoryCharacter,
	TagCategoryCopyright,
	TagCategoryGeneral,
	TagCategoryMeta,
}

// ParseTagCategory converts a user supplied category name, defaulting empty input to general.
func ParseTagCategory(s string) (TagCategory, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TagCategoryGeneral, nil
	}
	for _, c := range TagCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown tag category '%s'", s)
}

// Tag is a labeled attribute attached to posts.
// PostCount and IDFWeight are maintained by ingestion and treated as read-only elsewhere.
type Tag struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Category  TagCategory `json:"category"`
	PostCount int         `json:"post_count"`
	IDFWeight float64     `json:"idf_weight"`
}

// Connective reports whether the tag can link two different posts.
func (t Tag) Connective() bool {
	return t.PostCount > 1
}

// IDFWeight returns ln(1 + totalPosts/postCount), or 0 for an unused tag.
// The weight never increases as postCount grows.
func IDFWeight(totalPosts, postCount int) float64 {
	if postCount <= 0 || totalPosts <= 0 {
		return 0
	}
	return math.Log1p(float64(totalPosts) / float64(postCount))
}
