// Package lev computes Levenshtein distances.  It is used to suggest
// valid names for misspelled feature, strategy or classifier names.
package lev

// Distance calculates the levenshtein distance between s1 and s2.  The
// result is not normalized; identical strings have a distance of 0.
func Distance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}
	// Only the previous row of the matrix is needed.
	prev := make([]int, len(r2)+1)
	cur := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		cur[0] = i
		for j := 1; j <= len(r2); j++ {
			if r1[i-1] == r2[j-1] {
				cur[j] = prev[j-1]
			} else {
				cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+1)
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(r2)]
}

// Closest returns the candidate with the smallest distance to name and
// the according distance.  Ties are resolved in favour of the first
// candidate.  If there are no candidates, the empty string and -1 are
// returned.
func Closest(name string, candidates []string) (string, int) {
	best, dist := "", -1
	for _, c := range candidates {
		if d := Distance(name, c); dist == -1 || d < dist {
			best, dist = c, d
		}
	}
	return best, dist
}
