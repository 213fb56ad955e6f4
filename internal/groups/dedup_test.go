package groups

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/tagsearch/model"
)

func group(id int64, source string, posts ...int64) model.GroupWithMembers {
	return model.GroupWithMembers{
		Group:   model.Group{ID: id, SourceType: source, SourceID: source + "-src"},
		PostIDs: posts,
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]int64{1, 2, 3})
	assert.Equal(t, a, Fingerprint([]int64{1, 2, 3}), "stable")
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Fingerprint([]int64{3, 2, 1}), "order sensitive")
	assert.NotEqual(t, Fingerprint([]int64{1, 23}), Fingerprint([]int64{12, 3}), "ids are delimited")
}

func TestMergeIdenticalMembership(t *testing.T) {
	merged := Merge([]model.GroupWithMembers{
		group(1, "pool", 10, 11, 12),
		group(2, "gallery", 10, 11, 12),
		group(3, "pool", 20, 21),
	}, 4)

	require.Len(t, merged, 2)
	assert.Len(t, merged[0].Groups, 2)
	assert.Equal(t, "pool", merged[0].Groups[0].SourceType)
	assert.Equal(t, "gallery", merged[0].Groups[1].SourceType)
	assert.Equal(t, int64(1), merged[0].MinGroupID)
	assert.Equal(t, 3, merged[0].PostCount)
	assert.Len(t, merged[1].Groups, 1)
}

func TestMergeSkipsSingletons(t *testing.T) {
	merged := Merge([]model.GroupWithMembers{
		group(1, "album", 10),
		group(2, "album", 10),
		group(3, "pool", 10, 11),
	}, 4)

	require.Len(t, merged, 1)
	assert.Equal(t, int64(3), merged[0].MinGroupID)

	counts := RawCounts([]model.GroupWithMembers{group(1, "album", 10), group(3, "pool", 10, 11)})
	assert.Equal(t, map[string]int{"pool": 1}, counts)
}

func TestMergePreviewFromLowestGroup(t *testing.T) {
	merged := Merge([]model.GroupWithMembers{
		group(7, "pool", 1, 2, 3, 4, 5, 6),
		group(5, "gallery", 1, 2, 3, 4, 5, 6),
	}, 4)

	require.Len(t, merged, 1)
	assert.Equal(t, int64(5), merged[0].MinGroupID)
	assert.Equal(t, []int64{1, 2, 3, 4}, merged[0].PreviewPostIDs)
	assert.Equal(t, 6, merged[0].PostCount)
}

func TestRawCountsAreUnmerged(t *testing.T) {
	groups := []model.GroupWithMembers{
		group(1, "pool", 10, 11),
		group(2, "pool", 10, 11),
		group(3, "gallery", 10, 11),
	}

	assert.Equal(t, map[string]int{"pool": 2, "gallery": 1}, RawCounts(groups))
	assert.Len(t, Merge(groups, 4), 1, "three raw groups, one fingerprint")
}
