package search

import "sort"

// intersectAll intersects ascending id sets, smallest first. The result is a fresh slice.
func intersectAll(sets [][]int64) []int64 {
	if len(sets) == 0 {
		return nil
	}
	ordered := append([][]int64(nil), sets...)
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) < len(ordered[j]) })

	result := append([]int64(nil), ordered[0]...)
	for _, set := range ordered[1:] {
		if len(result) == 0 {
			break
		}
		result = intersectSorted(result, set)
	}
	return result
}

// intersectSorted writes the intersection of a and b into a's backing array.
func intersectSorted(a, b []int64) []int64 {
	out := a[:0]
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// unionSorted merges ascending id sets into a fresh ascending slice without duplicates.
func unionSorted(sets [][]int64) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, set := range sets {
		for _, id := range set {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if out == nil {
		out = []int64{}
	}
	return out
}
