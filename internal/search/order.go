package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/gcbaptista/tagsearch/services"
)

// seededRank is the sort key for random order: stable for a seed, shuffled across seeds.
func seededRank(seed string, id int64) uint64 {
	return xxhash.Sum64String(seed + ":" + strconv.FormatInt(id, 10))
}

// orderPosts sorts ids in place. Post ids grow with import time, so newest is
// descending id.
func (s *Service) orderPosts(ctx context.Context, ids []int64, order services.Order, seed string) error {
	switch order {
	case services.OrderOldest:
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	case services.OrderLargest:
		sizes, err := s.store.PostFileSizes(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load file sizes: %w", err)
		}
		sort.Slice(ids, func(i, j int) bool {
			si, sj := sizes[ids[i]], sizes[ids[j]]
			if si != sj {
				return si > sj
			}
			return ids[i] > ids[j]
		})

	case services.OrderRandom:
		ranks := make(map[int64]uint64, len(ids))
		for _, id := range ids {
			ranks[id] = seededRank(seed, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			ri, rj := ranks[ids[i]], ranks[ids[j]]
			if ri != rj {
				return ri < rj
			}
			return ids[i] < ids[j]
		})

	default:
		sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	}
	return nil
}
