package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
inputs:
  linkage_path: "/data/linkage.csv"
  items_path: "/data/items.txt"
  complexes_path: "/data/corum.gmt"
capture:
  min_jaccard: 0.6
storage:
  database_path: "runs.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Inputs.LinkagePath != "/data/linkage.csv" {
		t.Errorf("linkage_path = %s", cfg.Inputs.LinkagePath)
	}
	if cfg.Capture.MinJaccard != 0.6 {
		t.Errorf("min_jaccard = %g, want 0.6", cfg.Capture.MinJaccard)
	}
	if cfg.Capture.ScanPoints != 1000 {
		t.Errorf("scan_points should default to 1000, got %d", cfg.Capture.ScanPoints)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
inputs:
  linkage_path: "/data/linkage.csv"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
inputs:
  linkage_path: "data/linkage.csv"
  items_path: "./data/items.txt"
  complexes_path: "/abs/corum.gmt"
outputs:
  labels_path: "out/labels.csv"
storage:
  database_path: "runs.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "linkage.csv"); cfg.Inputs.LinkagePath != want {
		t.Errorf("linkage_path = %s, want %s", cfg.Inputs.LinkagePath, want)
	}
	if want := filepath.Join(dir, "data", "items.txt"); cfg.Inputs.ItemsPath != want {
		t.Errorf("items_path = %s, want %s", cfg.Inputs.ItemsPath, want)
	}
	if cfg.Inputs.ComplexesPath != "/abs/corum.gmt" {
		t.Errorf("absolute complexes_path should pass through, got %s", cfg.Inputs.ComplexesPath)
	}
	if want := filepath.Join(dir, "out", "labels.csv"); cfg.Outputs.LabelsPath != want {
		t.Errorf("labels_path = %s, want %s", cfg.Outputs.LabelsPath, want)
	}
	if want := filepath.Join(dir, "runs.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("inputs: ["), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Capture.ScanPoints != 1000 {
		t.Errorf("default scan_points: got %d", cfg.Capture.ScanPoints)
	}
	if cfg.Capture.MinJaccard != 0.5 {
		t.Errorf("default min_jaccard: got %g", cfg.Capture.MinJaccard)
	}
	if cfg.Capture.FallbackOffset != 0.1 {
		t.Errorf("default fallback_offset: got %g", cfg.Capture.FallbackOffset)
	}
	if cfg.Inputs.ComplexesFormat != "auto" {
		t.Errorf("default complexes_format: got %s", cfg.Inputs.ComplexesFormat)
	}
	if cfg.Outputs.LabelsFormat != "csv" {
		t.Errorf("default labels_format: got %s", cfg.Outputs.LabelsFormat)
	}
	if cfg.Outputs.TreeName != "root" {
		t.Errorf("default tree_name: got %s", cfg.Outputs.TreeName)
	}
	if cfg.Storage.DatabasePath != "comap.db" {
		t.Errorf("default database_path: got %s", cfg.Storage.DatabasePath)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Inputs: InputsConfig{
			LinkagePath:   "/data/linkage.csv",
			ItemsPath:     "/data/items.txt",
			ComplexesPath: "/data/corum.gmt",
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	missing := &Config{Inputs: InputsConfig{LinkagePath: "/data/linkage.csv"}}
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing items_path")
	}

	cfg.Outputs.LabelsFormat = "tsv"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown labels format")
	}
}

func TestInputPaths(t *testing.T) {
	cfg := &Config{
		Inputs: InputsConfig{
			LinkagePath:   "a.csv",
			ItemsPath:     "b.txt",
			ComplexesPath: "c.gmt",
		},
	}
	paths := cfg.InputPaths()
	if len(paths) != 3 || paths[0] != "a.csv" || paths[2] != "c.gmt" {
		t.Errorf("InputPaths() = %v", paths)
	}
}
