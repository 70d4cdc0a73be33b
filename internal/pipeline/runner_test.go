package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/proteomica/comap/internal/capture"
	"github.com/proteomica/comap/internal/config"
	"github.com/proteomica/comap/internal/models"
	"github.com/proteomica/comap/internal/nest"
	"github.com/proteomica/comap/internal/storage"
)

// The fixture links RPL1+RPL2 at 0.10, RPS1+RPS2 at 0.15, both pairs at 0.50,
// and ACT1 last at 0.90. With ten scan points the grid steps by exactly 0.1.
func writeFixtures(t *testing.T) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	linkagePath := filepath.Join(dir, "linkage.csv")
	itemsPath := filepath.Join(dir, "items.txt")
	complexesPath := filepath.Join(dir, "complexes.gmt")
	if err := os.WriteFile(linkagePath, []byte("0,1,0.10,2\n2,3,0.15,2\n5,6,0.50,4\n7,4,0.90,5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(itemsPath, []byte("RPL1\nRPL2\nRPS1\nRPS2\nACT1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(complexesPath, []byte("large subunit\tcytosolic\tRPL1\tRPL2\nDNA polymerase\t-\tPOL1\tPOL2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Inputs: config.InputsConfig{
			LinkagePath:     linkagePath,
			ItemsPath:       itemsPath,
			ComplexesPath:   complexesPath,
			ComplexesFormat: "auto",
		},
		Capture: capture.Config{ScanPoints: 10, MinJaccard: 0.5, FallbackOffset: 0.1},
		Outputs: config.OutputsConfig{
			LabelsPath:     filepath.Join(dir, "labels.csv"),
			LabelsFormat:   "csv",
			TreePath:       filepath.Join(dir, "tree.json"),
			TreeName:       "root",
			TreeThresholds: []float64{0.95},
		},
		Storage: config.StorageConfig{
			DatabasePath: filepath.Join(dir, "comap.db"),
			SaveRuns:     true,
		},
	}
	return dir, cfg
}

func TestRunnerRun(t *testing.T) {
	_, cfg := writeFixtures(t)
	run, err := NewRunner(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.ID == "" {
		t.Error("run has no ID")
	}
	if run.NumItems != 5 || run.NumComplexes != 2 {
		t.Errorf("counts = %d items, %d complexes; want 5, 2", run.NumItems, run.NumComplexes)
	}
	if run.NumCaptured != 1 || run.NumSkipped != 1 || run.NumUncaptured != 0 {
		t.Errorf("captured/skipped/uncaptured = %d/%d/%d, want 1/1/0",
			run.NumCaptured, run.NumSkipped, run.NumUncaptured)
	}
	if math.Abs(run.HighestThreshold-0.1) > 1e-9 {
		t.Errorf("HighestThreshold = %g, want 0.1", run.HighestThreshold)
	}
	if math.Abs(run.FallbackThreshold-0.2) > 1e-9 {
		t.Errorf("FallbackThreshold = %g, want 0.2", run.FallbackThreshold)
	}
	if run.FallbackClusters != 3 {
		t.Errorf("FallbackClusters = %d, want 3", run.FallbackClusters)
	}
	if run.MeanJaccard != 1.0 {
		t.Errorf("MeanJaccard = %g, want 1.0", run.MeanJaccard)
	}
	if run.InputDigest == "" {
		t.Error("run has no input digest")
	}
	if run.Assignment == nil {
		t.Fatal("run has no assignment")
	}
	if want := []int{1, 1, 4, 4, 5}; !reflect.DeepEqual(run.Assignment.Labels, want) {
		t.Errorf("labels = %v, want %v", run.Assignment.Labels, want)
	}
}

func TestRunnerWritesOutputFiles(t *testing.T) {
	_, cfg := writeFixtures(t)
	if _, err := NewRunner(cfg).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(cfg.Outputs.LabelsPath)
	if err != nil {
		t.Fatalf("labels file: %v", err)
	}
	out := string(data)
	for _, sub := range []string{"item,label,complex", "RPL1,1,large subunit", "RPS1,4,", "ACT1,5,"} {
		if !strings.Contains(out, sub) {
			t.Errorf("labels csv missing %q:\n%s", sub, out)
		}
	}

	data, err = os.ReadFile(cfg.Outputs.TreePath)
	if err != nil {
		t.Fatalf("tree file: %v", err)
	}
	var root nest.Node
	if err := json.Unmarshal(data, &root); err != nil {
		t.Fatalf("tree is not valid JSON: %v", err)
	}
	if root.Name != "root" {
		t.Errorf("root name = %q, want root", root.Name)
	}
	if root.LeafCount() != 5 {
		t.Errorf("tree has %d leaves, want 5", root.LeafCount())
	}
	// One coarse group at 0.95 holds everything; the assignment splits it.
	if len(root.Children) != 1 {
		t.Fatalf("root has %d children, want 1", len(root.Children))
	}
	if got := len(root.Children[0].Children); got != 3 {
		t.Errorf("coarse group has %d assignment groups, want 3", got)
	}
}

func TestRunnerSavesRun(t *testing.T) {
	_, cfg := writeFixtures(t)
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	run, err := NewRunner(cfg, WithStorage(store)).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.NumCaptured != 1 || got.InputDigest != run.InputDigest {
		t.Errorf("stored run = %+v", got)
	}
	if !reflect.DeepEqual(got.Assignment.Labels, run.Assignment.Labels) {
		t.Errorf("stored labels = %v, want %v", got.Assignment.Labels, run.Assignment.Labels)
	}
}

func TestRunnerSaveDisabled(t *testing.T) {
	_, cfg := writeFixtures(t)
	cfg.Storage.SaveRuns = false
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := NewRunner(cfg, WithStorage(store)).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	n, err := store.CountRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no stored runs, got %d", n)
	}
}

func TestRunnerCut(t *testing.T) {
	_, cfg := writeFixtures(t)
	result, err := NewRunner(cfg).Cut(0.2)
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
	if result.NumClusters != 3 {
		t.Errorf("NumClusters = %d, want 3", result.NumClusters)
	}
	if want := []int{1, 1, 2, 2, 3}; !reflect.DeepEqual(result.Labels, want) {
		t.Errorf("labels = %v, want %v", result.Labels, want)
	}
}

func TestRunnerTree(t *testing.T) {
	_, cfg := writeFixtures(t)
	root, err := NewRunner(cfg).Tree([]float64{0.6, 0.2}, "proteome")
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if root.Name != "proteome" {
		t.Errorf("root name = %q, want proteome", root.Name)
	}
	if root.LeafCount() != 5 {
		t.Errorf("tree has %d leaves, want 5", root.LeafCount())
	}
	// At 0.6 the four ribosomal proteins are one group and ACT1 another; at
	// 0.2 the first group splits into the two pairs.
	if len(root.Children) != 2 {
		t.Fatalf("root has %d groups at 0.6, want 2", len(root.Children))
	}
	if got := len(root.Children[0].Children); got != 2 {
		t.Errorf("first group splits into %d at 0.2, want 2", got)
	}

	if _, err := NewRunner(cfg).Tree(nil, "root"); err == nil {
		t.Error("expected error for empty threshold list")
	}
}

func TestRunnerMissingInput(t *testing.T) {
	_, cfg := writeFixtures(t)
	cfg.Inputs.LinkagePath = filepath.Join(t.TempDir(), "absent.csv")
	if _, err := NewRunner(cfg).Run(context.Background()); err == nil {
		t.Error("expected error for missing linkage file")
	}
}

func TestWriteLabelsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	asn := &models.Assignment{
		Items:  []string{"A", "B"},
		Labels: []int{1, 2},
		Captured: []*models.CapturedComplex{
			{Name: "pair", Label: 1, Jaccard: 1, Threshold: 0.1, ClusterSize: 2, Indices: []int{0}},
		},
	}
	if err := WriteLabels(path, "json", asn); err != nil {
		t.Fatalf("WriteLabels: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded models.Assignment
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("labels json decode: %v", err)
	}
	if !reflect.DeepEqual(decoded.Labels, asn.Labels) || decoded.Captured[0].Name != "pair" {
		t.Errorf("decoded = %+v", decoded)
	}
}
