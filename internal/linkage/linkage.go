// Package linkage models precomputed agglomerative clustering output and
// derives flat clusterings from it by cutting at a distance threshold.
package linkage

import "fmt"

// Merge is one agglomerative merge step. Cluster ids 0..n-1 are the original
// items; the merge at step i (0-based) produces cluster id n+i.
type Merge struct {
	A        int
	B        int
	Distance float64
	Size     int
}

// Linkage is an ordered sequence of merge steps over n = len(merges)+1 items.
type Linkage struct {
	merges []Merge
	n      int
}

// New validates the merge sequence and wraps it. Each cluster id must be in
// range for its step and may be consumed by at most one later merge.
func New(merges []Merge) (*Linkage, error) {
	if len(merges) == 0 {
		return nil, fmt.Errorf("linkage has no merge steps")
	}
	n := len(merges) + 1
	consumed := make([]bool, 2*n-1)
	for i, m := range merges {
		limit := n + i
		if m.A < 0 || m.A >= limit || m.B < 0 || m.B >= limit {
			return nil, fmt.Errorf("merge %d: cluster ids (%d, %d) out of range [0, %d)", i, m.A, m.B, limit)
		}
		if m.A == m.B {
			return nil, fmt.Errorf("merge %d: cluster %d merged with itself", i, m.A)
		}
		if consumed[m.A] || consumed[m.B] {
			return nil, fmt.Errorf("merge %d: cluster id reused after being merged", i)
		}
		if m.Distance < 0 {
			return nil, fmt.Errorf("merge %d: negative distance %g", i, m.Distance)
		}
		consumed[m.A] = true
		consumed[m.B] = true
	}
	return &Linkage{merges: merges, n: n}, nil
}

// NumItems returns the number of original items (leaves).
func (l *Linkage) NumItems() int {
	return l.n
}

// NumMerges returns the number of merge steps.
func (l *Linkage) NumMerges() int {
	return len(l.merges)
}

// Merges returns the merge steps in order.
func (l *Linkage) Merges() []Merge {
	return l.merges
}

// MaxDistance returns the largest merge distance.
func (l *Linkage) MaxDistance() float64 {
	max := 0.0
	for _, m := range l.merges {
		if m.Distance > max {
			max = m.Distance
		}
	}
	return max
}

// Cut returns a flat clustering at the given threshold: items connected by a
// chain of merges with distance <= threshold share a cluster. Labels are
// 1-based and numbered by first occurrence in item order, so the result is
// deterministic for a given linkage.
func (l *Linkage) Cut(threshold float64) []int {
	total := 2*l.n - 1
	parent := make([]int, total)
	for i := range parent {
		parent[i] = i
	}
	for i, m := range l.merges {
		if m.Distance <= threshold {
			node := l.n + i
			parent[m.A] = node
			parent[m.B] = node
		}
	}

	labels := make([]int, l.n)
	seen := make(map[int]int, l.n)
	next := 1
	for i := 0; i < l.n; i++ {
		root := find(parent, i)
		id, ok := seen[root]
		if !ok {
			id = next
			next++
			seen[root] = id
		}
		labels[i] = id
	}
	return labels
}

// NumClusters returns the number of distinct labels in a flat clustering.
func NumClusters(labels []int) int {
	max := 0
	for _, l := range labels {
		if l > max {
			max = l
		}
	}
	return max
}

// find resolves the root of id with path compression.
func find(parent []int, id int) int {
	root := id
	for parent[root] != root {
		root = parent[root]
	}
	for parent[id] != root {
		parent[id], id = root, parent[id]
	}
	return root
}
