// Package testutil provides fixtures and helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/tagsearch/internal/storage"
	"github.com/gcbaptista/tagsearch/model"
)

// NewTestStore opens a migrated SQLite store in a temp directory, closed on cleanup.
func NewTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "tagsearch.db"))
	require.NoError(t, err, "Failed to open test store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Corpus maps fixture post hashes to their ids
type Corpus struct {
	Posts  map[string]int64
	Groups map[string]int64 // "source_type/source_id" -> id
}

// ID returns the post id for a fixture hash.
func (c Corpus) ID(hash string) int64 { return c.Posts[hash] }

// IDs returns post ids for fixture hashes, in argument order.
func (c Corpus) IDs(hashes ...string) []int64 {
	ids := make([]int64, len(hashes))
	for i, h := range hashes {
		ids[i] = c.Posts[h]
	}
	return ids
}

func tagged(names ...string) []model.TagInput {
	tags := make([]model.TagInput, len(names))
	for i, n := range names {
		tags[i] = model.TagInput{Name: n}
	}
	return tags
}

// FixturePosts is the standard corpus. h5 has no tag shared with any other post.
var FixturePosts = []model.PostInput{
	{Hash: "h1", FileSize: 100, Tags: append(tagged("blue_eyes", "long_hair", "solo"), model.TagInput{Name: "alice", Category: "artist"})},
	{Hash: "h2", FileSize: 500, Tags: tagged("blue_eyes", "long_hair", "smile")},
	{Hash: "h3", FileSize: 300, Tags: tagged("red_eyes", "long_hair", "solo")},
	{Hash: "h4", FileSize: 300, Tags: tagged("blue_eyes", "short_hair", "unique_tag")},
	{Hash: "h5", FileSize: 50, Tags: tagged("solitary_tag")},
	{Hash: "h6", FileSize: 200, Tags: tagged("blue_eyes", "smile", "solo")},
}

// FixtureGroups: pool/1 and gallery/9 hold identical membership, album/3 is a singleton.
var FixtureGroups = []model.GroupInput{
	{SourceType: "pool", SourceID: "1", Title: "Pool one", PostHashes: []string{"h1", "h2", "h3"}},
	{SourceType: "gallery", SourceID: "9", Title: "Gallery nine", PostHashes: []string{"h1", "h2", "h3"}},
	{SourceType: "pool", SourceID: "2", Title: "Pool two", PostHashes: []string{"h4", "h6"}},
	{SourceType: "album", SourceID: "3", Title: "Single", PostHashes: []string{"h5"}},
}

// SeedCorpus writes the fixture posts and groups and refreshes tag statistics.
func SeedCorpus(t *testing.T, store storage.Storage) Corpus {
	t.Helper()
	ctx := context.Background()

	ids, err := store.UpsertPosts(ctx, FixturePosts)
	require.NoError(t, err, "Failed to seed posts")
	require.NoError(t, store.RefreshTagStats(ctx), "Failed to refresh tag stats")

	corpus := Corpus{Posts: make(map[string]int64), Groups: make(map[string]int64)}
	for i, p := range FixturePosts {
		corpus.Posts[p.Hash] = ids[i]
	}

	for _, g := range FixtureGroups {
		id, err := store.UpsertGroup(ctx, g)
		require.NoError(t, err, "Failed to seed group %s/%s", g.SourceType, g.SourceID)
		corpus.Groups[g.SourceType+"/"+g.SourceID] = id
	}

	return corpus
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

// WaitForJob polls progress until the job leaves the running state or times out.
func WaitForJob(t *testing.T, progress func() model.JobProgress, opts JobPollingOptions) model.JobProgress {
	t.Helper()
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job did not finish within %v", opts.Timeout)
		case <-ticker.C:
			p := progress()
			if p.Status == model.JobStatusCompleted || p.Status == model.JobStatusFailed {
				return p
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, p model.JobProgress) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, p.Status, "Job should be completed")
	assert.NotNil(t, p.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, p.Error, "Job should not have error")
	assert.Equal(t, p.Total, p.Processed, "Job should process every item")
}
