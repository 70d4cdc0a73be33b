// Package pipeline wires the full assignment run: load inputs, scan the
// catalog, write output files, and optionally persist the run.
package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/proteomica/comap/internal/capture"
	"github.com/proteomica/comap/internal/complexes"
	"github.com/proteomica/comap/internal/config"
	"github.com/proteomica/comap/internal/fingerprint"
	"github.com/proteomica/comap/internal/linkage"
	"github.com/proteomica/comap/internal/models"
	"github.com/proteomica/comap/internal/nest"
	"github.com/proteomica/comap/internal/storage"
	"github.com/proteomica/comap/pkg/utils"
)

// Runner executes assignment runs from configured inputs.
type Runner struct {
	cfg    *config.Config
	store  storage.Storage // optional; when set and save_runs is on, completed runs are saved
	logger *zap.Logger     // optional; when set, logs progress
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithStorage sets the store completed runs are saved to when
// storage.save_runs is enabled.
func WithStorage(s storage.Storage) RunnerOption {
	return func(r *Runner) { r.store = s }
}

// NewRunner creates a runner for the given configuration.
func NewRunner(cfg *config.Config, opts ...RunnerOption) *Runner {
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads the configured inputs, assigns labels, writes the configured
// output files, and returns the completed run.
func (r *Runner) Run(ctx context.Context) (*models.Run, error) {
	started := time.Now()

	link, items, cat, err := r.loadInputs()
	if err != nil {
		return nil, err
	}
	if r.logger != nil {
		r.logger.Debug("inputs loaded",
			zap.Int("items", len(items)),
			zap.Int("merges", link.NumMerges()),
			zap.Int("complexes", len(cat)))
	}

	digest, err := fingerprint.Digest(r.cfg.InputPaths()...)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint inputs: %w", err)
	}

	matcher, err := capture.NewMatcher(link, items, &r.cfg.Capture, capture.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	asn := matcher.Assign(cat)

	run := &models.Run{
		ID:                uuid.New().String(),
		CreatedAt:         time.Now().UTC(),
		LinkagePath:       r.cfg.Inputs.LinkagePath,
		ItemsPath:         r.cfg.Inputs.ItemsPath,
		ComplexesPath:     r.cfg.Inputs.ComplexesPath,
		InputDigest:       digest,
		NumItems:          len(items),
		NumComplexes:      len(cat),
		NumCaptured:       len(asn.Captured),
		NumSkipped:        len(asn.Skipped),
		NumUncaptured:     len(asn.Uncaptured),
		MaxDistance:       asn.MaxDistance,
		HighestThreshold:  asn.HighestThreshold,
		FallbackThreshold: asn.FallbackThreshold,
		FallbackClusters:  asn.FallbackClusters,
		MeanJaccard:       meanJaccard(asn.Captured),
		Assignment:        asn,
	}

	if err := r.writeOutputs(link, asn); err != nil {
		return nil, err
	}

	if r.store != nil && r.cfg.Storage.SaveRuns {
		if err := r.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
		if r.logger != nil {
			r.logger.Debug("run saved", zap.String("run_id", run.ID))
		}
	}

	if r.logger != nil {
		r.logger.Info("run complete",
			zap.String("run_id", run.ID),
			zap.String("digest", utils.ShortDigest(digest)),
			zap.Int("captured", run.NumCaptured),
			zap.Duration("elapsed", time.Since(started)))
	}
	return run, nil
}

// Tree loads the configured linkage and items and nests the flat cuts at the
// given thresholds, coarsest first, under rootName. No assignment is run; the
// levels are the cuts alone.
func (r *Runner) Tree(thresholds []float64, rootName string) (*nest.Node, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("no tree thresholds given")
	}
	link, err := linkage.Load(r.cfg.Inputs.LinkagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load linkage: %w", err)
	}
	items, err := linkage.LoadItems(r.cfg.Inputs.ItemsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	if len(items) != link.NumItems() {
		return nil, fmt.Errorf("item count %d does not match linkage leaf count %d", len(items), link.NumItems())
	}
	return nest.Build(rootName, items, cutLevels(link, thresholds))
}

// Cut loads the configured linkage and items and cuts at the given threshold.
func (r *Runner) Cut(threshold float64) (*models.CutResult, error) {
	link, err := linkage.Load(r.cfg.Inputs.LinkagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load linkage: %w", err)
	}
	items, err := linkage.LoadItems(r.cfg.Inputs.ItemsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	if len(items) != link.NumItems() {
		return nil, fmt.Errorf("item count %d does not match linkage leaf count %d", len(items), link.NumItems())
	}
	labels := link.Cut(threshold)
	return &models.CutResult{
		Threshold:   threshold,
		NumClusters: linkage.NumClusters(labels),
		Items:       items,
		Labels:      labels,
	}, nil
}

func (r *Runner) loadInputs() (*linkage.Linkage, []string, complexes.Catalog, error) {
	link, err := linkage.Load(r.cfg.Inputs.LinkagePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load linkage: %w", err)
	}
	items, err := linkage.LoadItems(r.cfg.Inputs.ItemsPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load items: %w", err)
	}
	cat, err := complexes.Load(r.cfg.Inputs.ComplexesPath, complexes.Format(r.cfg.Inputs.ComplexesFormat))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load complexes: %w", err)
	}
	return link, items, cat, nil
}

func (r *Runner) writeOutputs(link *linkage.Linkage, asn *models.Assignment) error {
	if path := r.cfg.Outputs.LabelsPath; path != "" {
		if err := WriteLabels(path, r.cfg.Outputs.LabelsFormat, asn); err != nil {
			return err
		}
		if r.logger != nil {
			r.logger.Debug("labels written", zap.String("path", path))
		}
	}
	if path := r.cfg.Outputs.TreePath; path != "" {
		root, err := r.buildTree(link, asn)
		if err != nil {
			return err
		}
		if err := WriteTree(path, root); err != nil {
			return err
		}
		if r.logger != nil {
			r.logger.Debug("tree written", zap.String("path", path))
		}
	}
	return nil
}

// buildTree stacks the configured coarse cuts above the assignment labels,
// coarsest first, and nests them under the configured root name.
func (r *Runner) buildTree(link *linkage.Linkage, asn *models.Assignment) (*nest.Node, error) {
	levels := append(cutLevels(link, r.cfg.Outputs.TreeThresholds),
		models.Level{Name: "assignment", Labels: asn.Labels})
	return nest.Build(r.cfg.Outputs.TreeName, asn.Items, levels)
}

func cutLevels(link *linkage.Linkage, thresholds []float64) []models.Level {
	levels := make([]models.Level, 0, len(thresholds)+1)
	for _, t := range thresholds {
		levels = append(levels, models.Level{
			Name:   "t" + strconv.FormatFloat(t, 'g', -1, 64),
			Labels: link.Cut(t),
		})
	}
	return levels
}

// WriteLabels writes the flat assignment to path. The csv format writes one
// item,label,complex row per item, with the complex column empty for fallback
// labels. The json format writes the full assignment, indented.
func WriteLabels(path, format string, asn *models.Assignment) error {
	var buf bytes.Buffer
	switch format {
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(asn); err != nil {
			return fmt.Errorf("failed to encode labels: %w", err)
		}
	default:
		names := make(map[int]string, len(asn.Captured))
		for _, c := range asn.Captured {
			names[c.Label] = c.Name
		}
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"item", "label", "complex"})
		for i, item := range asn.Items {
			label := asn.Labels[i]
			_ = w.Write([]string{item, strconv.Itoa(label), names[label]})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("failed to write labels: %w", err)
		}
	}
	if err := writeOutputFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write labels file: %w", err)
	}
	return nil
}

// WriteTree writes the nested grouping as indented JSON.
func WriteTree(path string, root *nest.Node) error {
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}
	if err := writeOutputFile(path, data); err != nil {
		return fmt.Errorf("failed to write tree file: %w", err)
	}
	return nil
}

// writeOutputFile writes data to path, creating parent directories as needed.
func writeOutputFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func meanJaccard(captured []*models.CapturedComplex) float64 {
	if len(captured) == 0 {
		return 0
	}
	jacs := make([]float64, len(captured))
	for i, c := range captured {
		jacs[i] = c.Jaccard
	}
	return stat.Mean(jacs, nil)
}
