package suggest

// Distance returns the optimal-string-alignment Damerau-Levenshtein distance
// between a and b: insertions, deletions, substitutions and adjacent
// transpositions each cost one. It works on runes.
func Distance(a, b string) int {
	return DistanceWithLimit(a, b, -1)
}

// DistanceWithLimit is Distance with early termination. When the distance exceeds
// maxDistance it returns maxDistance+1. A negative maxDistance disables the limit.
func DistanceWithLimit(a, b string, maxDistance int) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	if maxDistance >= 0 {
		diff := la - lb
		if diff < 0 {
			diff = -diff
		}
		if diff > maxDistance {
			return maxDistance + 1
		}
	}
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// three rolling rows: two back for transpositions, previous and current
	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d := min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d = min(d, prev2[j-2]+1)
			}
			cur[j] = d
			rowMin = min(rowMin, d)
		}
		if maxDistance >= 0 && rowMin > maxDistance {
			return maxDistance + 1
		}
		prev2, prev, cur = prev, cur, prev2
	}

	d := prev[lb]
	if maxDistance >= 0 && d > maxDistance {
		return maxDistance + 1
	}
	return d
}
