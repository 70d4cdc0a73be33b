// Package capture implements the adaptive threshold scan that matches
// reference complexes to clusters of a linkage and assigns flat labels.
package capture

// Config holds the scan parameters.
type Config struct {
	// ScanPoints is the number of evenly spaced cut thresholds evaluated
	// between zero and the largest merge distance, inclusive.
	ScanPoints int `yaml:"scan_points"` // default: 1000

	// MinJaccard is the smallest Jaccard index a cluster must reach against
	// a complex before the complex can be captured.
	MinJaccard float64 `yaml:"min_jaccard"` // default: 0.5

	// FallbackOffset is added to the highest capturing threshold to place
	// the fallback cut that labels leftover items.
	FallbackOffset float64 `yaml:"fallback_offset"` // default: 0.1
}

// DefaultConfig returns the scan parameters used by the reference protocol.
func DefaultConfig() *Config {
	return &Config{
		ScanPoints:     1000,
		MinJaccard:     0.5,
		FallbackOffset: 0.1,
	}
}

// ApplyDefaults fills in default values for unset fields.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ScanPoints <= 0 {
		c.ScanPoints = d.ScanPoints
	}
	if c.MinJaccard == 0 {
		c.MinJaccard = d.MinJaccard
	}
	if c.FallbackOffset == 0 {
		c.FallbackOffset = d.FallbackOffset
	}
}
