package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/proteomica/comap/internal/models"
)

func testRun(id string, createdAt time.Time) *models.Run {
	return &models.Run{
		ID:                id,
		CreatedAt:         createdAt,
		LinkagePath:       "linkage.csv",
		ItemsPath:         "items.txt",
		ComplexesPath:     "complexes.gmt",
		InputDigest:       "0a1b2c",
		NumItems:          3,
		NumComplexes:      2,
		NumCaptured:       1,
		NumSkipped:        1,
		MaxDistance:       0.9,
		HighestThreshold:  0.1,
		FallbackThreshold: 0.2,
		FallbackClusters:  2,
		MeanJaccard:       1.0,
		Assignment: &models.Assignment{
			Items:  []string{"RPL1", "RPL2", "ACT1"},
			Labels: []int{1, 1, 4},
			Captured: []*models.CapturedComplex{
				{Name: "large subunit", Label: 1, Jaccard: 1.0, Threshold: 0.1, ClusterSize: 2, Indices: []int{0, 1}},
			},
			MaxDistance:       0.9,
			HighestThreshold:  0.1,
			FallbackThreshold: 0.2,
			FallbackClusters:  2,
		},
	}
}

func TestSQLiteStorage_SaveGetRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	run := testRun("run1", time.Now())
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRun(ctx, "run1")
	if err != nil {
		t.Fatal(err)
	}
	if got.LinkagePath != "linkage.csv" || got.NumCaptured != 1 {
		t.Errorf("got %+v", got)
	}
	if got.Assignment == nil {
		t.Fatal("assignment not loaded")
	}
	if !reflect.DeepEqual(got.Assignment.Items, run.Assignment.Items) {
		t.Errorf("items = %v, want %v", got.Assignment.Items, run.Assignment.Items)
	}
	if !reflect.DeepEqual(got.Assignment.Labels, run.Assignment.Labels) {
		t.Errorf("labels = %v, want %v", got.Assignment.Labels, run.Assignment.Labels)
	}
	if len(got.Assignment.Captured) != 1 {
		t.Fatalf("expected 1 capture, got %d", len(got.Assignment.Captured))
	}
	c := got.Assignment.Captured[0]
	if c.Name != "large subunit" || c.Label != 1 || c.Jaccard != 1.0 || c.ClusterSize != 2 {
		t.Errorf("capture = %+v", c)
	}

	if _, err := store.GetRun(ctx, "missing"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestSQLiteStorage_SaveRunRequiresAssignment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	run := testRun("run1", time.Now())
	run.Assignment = nil
	if err := store.SaveRun(context.Background(), run); err == nil {
		t.Error("expected error for run without assignment")
	}
}

func TestSQLiteStorage_ListDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SaveRun(ctx, testRun("older", base)); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRun(ctx, testRun("newer", base.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	runs, err := store.ListRuns(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "newer" || runs[1].ID != "older" {
		t.Errorf("order = %s, %s; want newer, older", runs[0].ID, runs[1].ID)
	}
	if runs[0].Assignment != nil {
		t.Error("list should not load assignments")
	}

	runs, err = store.ListRuns(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "older" {
		t.Errorf("offset list = %+v", runs)
	}

	if err := store.DeleteRun(ctx, "older"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetRun(ctx, "older"); err == nil {
		t.Error("expected error after delete")
	}
	if err := store.DeleteRun(ctx, "older"); err == nil {
		t.Error("expected error deleting twice")
	}
}

func TestSQLiteStorage_Counts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	n, err := store.CountRuns(ctx)
	if err != nil || n != 0 {
		t.Errorf("CountRuns: %v, %d", err, n)
	}
	if err := store.SaveRun(ctx, testRun("run1", time.Now())); err != nil {
		t.Fatal(err)
	}
	n, _ = store.CountRuns(ctx)
	if n != 1 {
		t.Errorf("expected 1 run, got %d", n)
	}
}
