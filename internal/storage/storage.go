// Package storage persists posts, tags, groups, recommendation rows and the
// key-value settings table in SQLite.
package storage

import (
	"context"

	"github.com/gcbaptista/tagsearch/model"
)

// Storage defines everything the services read from and write to the relational store.
type Storage interface {
	// Tag operations
	TagIDsByName(ctx context.Context, names []string) (map[string]int64, error)
	GetTagByName(ctx context.Context, name string) (*model.Tag, error)
	TagsByID(ctx context.Context, ids []int64) ([]model.Tag, error)
	MatchTagNames(ctx context.Context, likePattern string, limit int) ([]string, error)
	TagsWithPrefix(ctx context.Context, prefix string, limit int) ([]model.Tag, error)
	RefreshTagStats(ctx context.Context) error

	// Post operations
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	AllPostIDs(ctx context.Context) ([]int64, error)
	PostIDsForTag(ctx context.Context, tagID int64) ([]int64, error)
	PostFileSizes(ctx context.Context, ids []int64) (map[int64]int64, error)
	PostTagIDs(ctx context.Context, postID int64) ([]int64, error)
	PostTagsForTags(ctx context.Context, tagIDs []int64) ([]model.PostTag, error)
	EligiblePostIDs(ctx context.Context) ([]int64, error)
	UpsertPosts(ctx context.Context, posts []model.PostInput) ([]int64, error)

	// Group operations
	GroupsWithMembers(ctx context.Context, minMembers int) ([]model.GroupWithMembers, error)
	GroupMates(ctx context.Context, postID int64) ([]int64, error)
	UpsertGroup(ctx context.Context, group model.GroupInput) (int64, error)

	// Recommendation cache operations
	Recommendations(ctx context.Context, postID int64) ([]model.PostRecommendation, error)
	ReplaceRecommendations(ctx context.Context, postID int64, recs []model.PostRecommendation) error
	ClearRecommendations(ctx context.Context) (int64, error)

	// Statistics
	CorpusCounts(ctx context.Context) (*model.CorpusStats, error)

	// Settings key-value operations
	GetSetting(ctx context.Context, key string) ([]byte, error)
	PutSetting(ctx context.Context, key string, value []byte) error

	Close() error
}
