// Package groups merges imported groups that hold identical ordered membership.
//
// Every group with at least two posts gets a fingerprint, the BLAKE3 hash of its
// member ids in position order. Groups with equal fingerprints collapse into one
// MergedGroup that keeps every constituent for provenance and previews posts from
// the lowest-id constituent. Merged views are computed on read and never stored.
package groups

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/gcbaptista/tagsearch/model"
)

// MinMembers is the smallest group that takes part in merging and size reporting.
const MinMembers = 2

// Fingerprint hashes an ordered post id sequence. Order matters: [1,2] and [2,1] differ.
func Fingerprint(postIDs []int64) string {
	var b strings.Builder
	for i, id := range postIDs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Merge collapses groups with equal fingerprints. Groups below MinMembers are skipped.
// Output follows the first appearance of each fingerprint in the input.
func Merge(groups []model.GroupWithMembers, previewSize int) []model.MergedGroup {
	index := make(map[string]int)
	var merged []model.MergedGroup

	for _, g := range groups {
		if len(g.PostIDs) < MinMembers {
			continue
		}
		fp := Fingerprint(g.PostIDs)
		ref := model.GroupRef{ID: g.ID, SourceType: g.SourceType, SourceID: g.SourceID, Title: g.Title}

		i, ok := index[fp]
		if !ok {
			index[fp] = len(merged)
			merged = append(merged, model.MergedGroup{
				Fingerprint:    fp,
				Groups:         []model.GroupRef{ref},
				PostCount:      len(g.PostIDs),
				PreviewPostIDs: preview(g.PostIDs, previewSize),
				MinGroupID:     g.ID,
			})
			continue
		}

		m := &merged[i]
		m.Groups = append(m.Groups, ref)
		if g.ID < m.MinGroupID {
			m.MinGroupID = g.ID
			m.PreviewPostIDs = preview(g.PostIDs, previewSize)
		}
	}
	return merged
}

// RawCounts counts unmerged groups with at least MinMembers posts per source type.
func RawCounts(groups []model.GroupWithMembers) map[string]int {
	counts := make(map[string]int)
	for _, g := range groups {
		if len(g.PostIDs) >= MinMembers {
			counts[g.SourceType]++
		}
	}
	return counts
}

func preview(postIDs []int64, n int) []int64 {
	if n > len(postIDs) {
		n = len(postIDs)
	}
	out := make([]int64, n)
	copy(out, postIDs[:n])
	return out
}
