package capture

// Jaccard returns the Jaccard index of two sets: the size of the intersection
// divided by the size of the union. Two empty sets score zero.
func Jaccard(a, b map[string]struct{}) float64 {
	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Set builds a membership set from a list of names, dropping duplicates.
func Set(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
