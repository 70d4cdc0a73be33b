package capture

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/proteomica/comap/internal/complexes"
	"github.com/proteomica/comap/internal/linkage"
	"github.com/proteomica/comap/internal/models"
)

// Matcher scans a fixed grid of cut thresholds over a linkage and captures
// reference complexes at the threshold where they best match a cluster.
type Matcher struct {
	link   *linkage.Linkage
	items  []string
	cfg    *Config
	logger *zap.Logger

	// One flat clustering per scan threshold, with per-label cluster sizes,
	// computed once and shared across all complexes.
	thresholds []float64
	cuts       [][]int
	sizes      [][]int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets a logger for scan diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// NewMatcher builds a matcher for the given linkage and item names. The item
// list must be parallel to the linkage leaves. A nil config uses defaults.
func NewMatcher(link *linkage.Linkage, items []string, cfg *Config, opts ...Option) (*Matcher, error) {
	if link == nil {
		return nil, fmt.Errorf("linkage is nil")
	}
	if len(items) != link.NumItems() {
		return nil, fmt.Errorf("item count %d does not match linkage leaf count %d", len(items), link.NumItems())
	}

	resolved := DefaultConfig()
	if cfg != nil {
		c := *cfg
		c.ApplyDefaults()
		resolved = &c
	}
	if resolved.ScanPoints < 2 {
		return nil, fmt.Errorf("scan_points must be at least 2, got %d", resolved.ScanPoints)
	}

	m := &Matcher{
		link:  link,
		items: items,
		cfg:   resolved,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.thresholds = floats.Span(make([]float64, resolved.ScanPoints), 0, link.MaxDistance())
	m.cuts = make([][]int, len(m.thresholds))
	m.sizes = make([][]int, len(m.thresholds))
	for i, t := range m.thresholds {
		labels := link.Cut(t)
		sizes := make([]int, link.NumItems()+1)
		for _, l := range labels {
			sizes[l]++
		}
		m.cuts[i] = labels
		m.sizes[i] = sizes
	}
	return m, nil
}

// Thresholds returns the scan grid, from zero to the largest merge distance.
func (m *Matcher) Thresholds() []float64 {
	return m.thresholds
}

// Assign scans the catalog and produces a complete labeling of the item set.
//
// Complexes are visited in catalog order. For each complex the scan walks the
// threshold grid from finest to coarsest; whenever a cluster of at least two
// members scores a Jaccard index against the complex gene set that both
// reaches MinJaccard and strictly improves on the complex's best so far, the
// match is recorded and the capturing threshold noted. Captured complexes
// take labels 1, 2, 3, ... in capture order, later captures overwriting
// earlier ones where their member sets overlap. Items no captured complex
// claimed are labeled by a fallback cut placed just above the highest
// capturing threshold, with fallback labels offset past the captured range.
func (m *Matcher) Assign(cat complexes.Catalog) *models.Assignment {
	n := m.link.NumItems()
	asn := &models.Assignment{
		Items:       m.items,
		Labels:      make([]int, n),
		MaxDistance: m.link.MaxDistance(),
	}

	highest := 0.0
	counts := make([]int, n+1)
	members := make([]int, 0, n)
	for _, cpx := range cat {
		genes := cpx.GeneSet()
		present := members[:0]
		for i, item := range m.items {
			if _, ok := genes[item]; ok {
				present = append(present, i)
			}
		}
		if len(present) < 2 {
			asn.Skipped = append(asn.Skipped, cpx.Name)
			if m.logger != nil {
				m.logger.Debug("complex skipped",
					zap.String("complex", cpx.Name),
					zap.Int("genes_present", len(present)))
			}
			continue
		}

		var best *models.CapturedComplex
		for ti, t := range m.thresholds {
			labels := m.cuts[ti]
			sizes := m.sizes[ti]
			for _, idx := range present {
				counts[labels[idx]]++
			}
			for _, idx := range present {
				label := labels[idx]
				inter := counts[label]
				if inter == 0 {
					continue
				}
				counts[label] = 0
				size := sizes[label]
				if size < 2 {
					continue
				}
				jac := float64(inter) / float64(size+len(genes)-inter)
				if jac < m.cfg.MinJaccard {
					continue
				}
				if best != nil && jac <= best.Jaccard {
					continue
				}
				indices := make([]int, 0, size)
				for i, l := range labels {
					if l == label {
						indices = append(indices, i)
					}
				}
				best = &models.CapturedComplex{
					Name:        cpx.Name,
					Jaccard:     jac,
					Threshold:   t,
					ClusterSize: size,
					Indices:     indices,
				}
				if t > highest {
					highest = t
				}
				if m.logger != nil {
					m.logger.Debug("complex match improved",
						zap.String("complex", cpx.Name),
						zap.Float64("jaccard", jac),
						zap.Float64("threshold", t),
						zap.Int("cluster_size", size))
				}
			}
		}

		if best == nil {
			asn.Uncaptured = append(asn.Uncaptured, cpx.Name)
			continue
		}
		best.Label = len(asn.Captured) + 1
		asn.Captured = append(asn.Captured, best)
	}

	for _, c := range asn.Captured {
		for _, idx := range c.Indices {
			asn.Labels[idx] = c.Label
		}
	}

	asn.HighestThreshold = highest
	asn.FallbackThreshold = highest + m.cfg.FallbackOffset
	fallback := m.link.Cut(asn.FallbackThreshold)
	asn.FallbackClusters = linkage.NumClusters(fallback)
	offset := len(asn.Captured) + 1
	for i, l := range asn.Labels {
		if l == 0 {
			asn.Labels[i] = fallback[i] + offset
		}
	}

	if m.logger != nil {
		m.logger.Info("assignment complete",
			zap.Int("items", n),
			zap.Int("complexes", len(cat)),
			zap.Int("captured", len(asn.Captured)),
			zap.Int("skipped", len(asn.Skipped)),
			zap.Int("uncaptured", len(asn.Uncaptured)),
			zap.Float64("highest_threshold", asn.HighestThreshold),
			zap.Float64("fallback_threshold", asn.FallbackThreshold),
			zap.Int("fallback_clusters", asn.FallbackClusters))
	}
	return asn
}
