package models

import "time"

// Run records one pipeline execution: the inputs it consumed, summary counts,
// and the resulting assignment. Runs are persisted by the storage package.
type Run struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Input paths as given in the configuration.
	LinkagePath   string `json:"linkage_path" db:"linkage_path"`
	ItemsPath     string `json:"items_path" db:"items_path"`
	ComplexesPath string `json:"complexes_path" db:"complexes_path"`

	// InputDigest is a content digest over the three input files, so a run
	// can be traced back to the exact data it saw.
	InputDigest string `json:"input_digest" db:"input_digest"`

	NumItems      int `json:"num_items" db:"num_items"`
	NumComplexes  int `json:"num_complexes" db:"num_complexes"`
	NumCaptured   int `json:"num_captured" db:"num_captured"`
	NumSkipped    int `json:"num_skipped" db:"num_skipped"`
	NumUncaptured int `json:"num_uncaptured" db:"num_uncaptured"`

	MaxDistance       float64 `json:"max_distance" db:"max_distance"`
	HighestThreshold  float64 `json:"highest_threshold" db:"highest_threshold"`
	FallbackThreshold float64 `json:"fallback_threshold" db:"fallback_threshold"`
	FallbackClusters  int     `json:"fallback_clusters" db:"fallback_clusters"`

	// MeanJaccard summarizes match quality over the captured complexes.
	MeanJaccard float64 `json:"mean_jaccard" db:"mean_jaccard"`

	// Assignment is populated on a live run and when loading a single run;
	// list queries leave it nil.
	Assignment *Assignment `json:"assignment,omitempty" db:"-"`
}

// Level is one flat clustering over the item set, used as a layer when
// building nested groupings. Labels is parallel to the item list.
type Level struct {
	Name   string `json:"name"`
	Labels []int  `json:"labels"`
}

// CutResult is the outcome of a single flat cut of the linkage.
type CutResult struct {
	Threshold   float64  `json:"threshold"`
	NumClusters int      `json:"num_clusters"`
	Items       []string `json:"items"`
	Labels      []int    `json:"labels"`
}
