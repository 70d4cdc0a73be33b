// Package models defines the core data structures used across comap.
package models

// CapturedComplex records a reference complex that was claimed during the
// threshold scan, together with the cluster that matched it.
type CapturedComplex struct {
	// Name is the complex name as it appears in the catalog.
	Name string `json:"name" db:"complex_name"`

	// Label is the positive integer assigned to the complex, in capture order.
	Label int `json:"label" db:"label"`

	// Jaccard is the best Jaccard index the complex reached during the scan.
	Jaccard float64 `json:"jaccard" db:"jaccard"`

	// Threshold is the cut distance at which the best match occurred.
	Threshold float64 `json:"threshold" db:"threshold"`

	// ClusterSize is the number of items in the matched cluster.
	ClusterSize int `json:"cluster_size" db:"cluster_size"`

	// Indices are the item indices of the matched cluster's members. They are
	// not persisted; loaded runs carry only ClusterSize.
	Indices []int `json:"indices,omitempty" db:"-"`
}

// Assignment is a complete flat labeling of the item set: one label per item,
// with captured complexes labeled first and all remaining items labeled by the
// fallback cut.
type Assignment struct {
	// Items holds the item names in linkage leaf order.
	Items []string `json:"items"`

	// Labels holds one positive label per item, parallel to Items.
	Labels []int `json:"labels"`

	// Captured lists the claimed complexes in capture order, so that
	// Captured[i].Label == i+1.
	Captured []*CapturedComplex `json:"captured"`

	// Skipped lists complexes that shared fewer than two genes with the item
	// set and never entered the scan.
	Skipped []string `json:"skipped,omitempty"`

	// Uncaptured lists complexes that entered the scan but never reached the
	// minimum Jaccard index.
	Uncaptured []string `json:"uncaptured,omitempty"`

	// MaxDistance is the largest merge distance in the linkage.
	MaxDistance float64 `json:"max_distance"`

	// HighestThreshold is the largest cut distance at which any complex
	// improved its best match.
	HighestThreshold float64 `json:"highest_threshold"`

	// FallbackThreshold is the cut distance used to label leftover items.
	FallbackThreshold float64 `json:"fallback_threshold"`

	// FallbackClusters is the number of clusters the fallback cut produced.
	FallbackClusters int `json:"fallback_clusters"`
}

// NumCaptured returns the number of claimed complexes.
func (a *Assignment) NumCaptured() int {
	return len(a.Captured)
}

// LabelSizes returns the number of items carrying each label.
func (a *Assignment) LabelSizes() map[int]int {
	sizes := make(map[int]int, len(a.Captured))
	for _, l := range a.Labels {
		sizes[l]++
	}
	return sizes
}
