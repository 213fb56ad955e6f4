package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gcbaptista/tagsearch/internal/errors"
	"github.com/gcbaptista/tagsearch/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func tags(names ...string) []model.TagInput {
	out := make([]model.TagInput, len(names))
	for i, n := range names {
		out[i] = model.TagInput{Name: n}
	}
	return out
}

func seedPosts(t *testing.T, s *SQLiteStorage) []int64 {
	t.Helper()
	ids, err := s.UpsertPosts(context.Background(), []model.PostInput{
		{Hash: "h1", FileSize: 100, Tags: tags("blue_eyes", "solo", "rare_tag")},
		{Hash: "h2", FileSize: 300, Tags: tags("blue_eyes", "solo")},
		{Hash: "h3", FileSize: 200, Tags: tags("red_eyes", "solo")},
	})
	require.NoError(t, err)
	require.NoError(t, s.RefreshTagStats(context.Background()))
	return ids
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	version, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()

	version, err = s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestUpsertPostsAndTagStats(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	ids := seedPosts(t, s)
	require.Len(t, ids, 3)

	solo, err := s.GetTagByName(ctx, "solo")
	require.NoError(t, err)
	rare, err := s.GetTagByName(ctx, "rare_tag")
	require.NoError(t, err)

	assert.Equal(t, 3, solo.PostCount)
	assert.Equal(t, 1, rare.PostCount)
	assert.InDelta(t, math.Log1p(1), solo.IDFWeight, 1e-9)
	assert.InDelta(t, math.Log1p(3), rare.IDFWeight, 1e-9)
	assert.Greater(t, rare.IDFWeight, solo.IDFWeight)
	assert.Equal(t, model.TagCategoryGeneral, solo.Category)

	// re-import replaces the tag set and keeps the id
	again, err := s.UpsertPosts(ctx, []model.PostInput{{Hash: "h1", FileSize: 150, Tags: tags("solo")}})
	require.NoError(t, err)
	assert.Equal(t, ids[0], again[0])

	tagIDs, err := s.PostTagIDs(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, []int64{solo.ID}, tagIDs)

	p, err := s.GetPost(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(150), p.FileSize)
}

func TestTagCategoryKeptWhenOmitted(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.UpsertPosts(ctx, []model.PostInput{
		{Hash: "a", Tags: []model.TagInput{{Name: "alice", Category: "character"}}},
	})
	require.NoError(t, err)
	_, err = s.UpsertPosts(ctx, []model.PostInput{{Hash: "b", Tags: tags("alice")}})
	require.NoError(t, err)

	tag, err := s.GetTagByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.TagCategoryCharacter, tag.Category)
}

func TestTagLookups(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seedPosts(t, s)

	ids, err := s.TagIDsByName(ctx, []string{"solo", "blue_eyes", "missing"})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.NotContains(t, ids, "missing")

	_, err = s.GetTagByName(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	names, err := s.MatchTagNames(ctx, `%\_eyes`, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"blue_eyes", "red_eyes"}, names)

	// '_' is escaped, so it must not act as a single-character wildcard
	names, err = s.MatchTagNames(ctx, `sol\_%`, 10)
	require.NoError(t, err)
	assert.Empty(t, names)

	names, err = s.MatchTagNames(ctx, `%eyes`, 1)
	require.NoError(t, err)
	assert.Len(t, names, 1)

	prefixed, err := s.TagsWithPrefix(ctx, "r", 10)
	require.NoError(t, err)
	require.Len(t, prefixed, 2)
	assert.Equal(t, "rare_tag", prefixed[0].Name)
}

func TestPostQueries(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	ids := seedPosts(t, s)

	all, err := s.AllPostIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, all)

	blue, err := s.GetTagByName(ctx, "blue_eyes")
	require.NoError(t, err)
	posts, err := s.PostIDsForTag(ctx, blue.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0], ids[1]}, posts)

	sizes, err := s.PostFileSizes(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(300), sizes[ids[1]])

	pairs, err := s.PostTagsForTags(ctx, []int64{blue.ID})
	require.NoError(t, err)
	assert.Len(t, pairs, 2)

	eligible, err := s.EligiblePostIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, eligible)

	_, err = s.GetPost(ctx, 9999)
	assert.True(t, errors.Is(err, apperrors.ErrPostNotFound))
}

func TestGroups(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	ids := seedPosts(t, s)

	g1, err := s.UpsertGroup(ctx, model.GroupInput{SourceType: "pool", SourceID: "1", PostHashes: []string{"h2", "h1"}})
	require.NoError(t, err)
	_, err = s.UpsertGroup(ctx, model.GroupInput{SourceType: "album", SourceID: "x", PostHashes: []string{"h3"}})
	require.NoError(t, err)

	groups, err := s.GroupsWithMembers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, g1, groups[0].ID)
	assert.Equal(t, []int64{ids[1], ids[0]}, groups[0].PostIDs, "members keep position order")

	mates, err := s.GroupMates(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1]}, mates)

	// same source replaces membership
	again, err := s.UpsertGroup(ctx, model.GroupInput{SourceType: "pool", SourceID: "1", PostHashes: []string{"h1", "h2", "h3"}})
	require.NoError(t, err)
	assert.Equal(t, g1, again)

	groups, err = s.GroupsWithMembers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].PostIDs, 3)

	_, err = s.UpsertGroup(ctx, model.GroupInput{SourceType: "pool", SourceID: "2", PostHashes: []string{"nope"}})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestRecommendationRows(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	ids := seedPosts(t, s)
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.ReplaceRecommendations(ctx, ids[0], []model.PostRecommendation{
		{PostID: ids[0], RecommendedID: ids[1], Score: 2.5, ComputedAt: now},
		{PostID: ids[0], RecommendedID: ids[2], Score: 0.7, ComputedAt: now},
	}))

	recs, err := s.Recommendations(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, ids[1], recs[0].RecommendedID)
	assert.True(t, now.Equal(recs[0].ComputedAt))

	// overwrite, not append
	require.NoError(t, s.ReplaceRecommendations(ctx, ids[0], []model.PostRecommendation{
		{PostID: ids[0], RecommendedID: ids[2], Score: 1, ComputedAt: now},
	}))
	recs, err = s.Recommendations(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	n, err := s.ClearRecommendations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSettings(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetSetting(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, s.PutSetting(ctx, "k", []byte(`{"a":1}`)))
	require.NoError(t, s.PutSetting(ctx, "k", []byte(`{"a":2}`)))

	v, err := s.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(v))
}

func TestCorpusCounts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seedPosts(t, s)

	_, err := s.UpsertGroup(ctx, model.GroupInput{SourceType: "pool", SourceID: "1", PostHashes: []string{"h1", "h2"}})
	require.NoError(t, err)

	stats, err := s.CorpusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Posts)
	assert.Equal(t, 4, stats.Tags)
	assert.Equal(t, 4, stats.TagsByCategory[model.TagCategoryGeneral])
	assert.Equal(t, map[string]int{"pool": 1}, stats.GroupsBySource)
}

func TestChunkIDs(t *testing.T) {
	ids := make([]int64, 1203)
	chunks := chunkIDs(ids, maxInParams)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 203)
	assert.Equal(t, "?,?,?", placeholders(3))
}
