// Package config provides configuration loading and structs for the comap
// pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/proteomica/comap/internal/capture"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool           `yaml:"debug"`
	Inputs  InputsConfig   `yaml:"inputs"`
	Capture capture.Config `yaml:"capture"`
	Outputs OutputsConfig  `yaml:"outputs"`
	Storage StorageConfig  `yaml:"storage"`
}

// InputsConfig names the three input files of a run.
type InputsConfig struct {
	// LinkagePath is the linkage matrix (CSV or TSV).
	LinkagePath string `yaml:"linkage_path"`

	// ItemsPath lists item names in linkage leaf order, one per line.
	ItemsPath string `yaml:"items_path"`

	// ComplexesPath is the reference complex catalog.
	ComplexesPath string `yaml:"complexes_path"`

	// ComplexesFormat is gmt, json, xlsx, or auto (by extension).
	ComplexesFormat string `yaml:"complexes_format"`
}

// OutputsConfig controls which result files a run writes.
type OutputsConfig struct {
	// LabelsPath receives the flat assignment; empty disables the file.
	LabelsPath string `yaml:"labels_path"`

	// LabelsFormat is csv or json.
	LabelsFormat string `yaml:"labels_format"`

	// TreePath receives the nested grouping JSON; empty disables the file.
	TreePath string `yaml:"tree_path"`

	// TreeName is the root node name of the nested grouping.
	TreeName string `yaml:"tree_name"`

	// TreeThresholds adds one coarse cut level per threshold above the
	// assignment level, coarsest first.
	TreeThresholds []float64 `yaml:"tree_thresholds"`
}

// StorageConfig holds run persistence settings.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	SaveRuns     bool   `yaml:"save_runs"`
}

// Load reads and parses the config file at path, applies defaults, and
// expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Inputs.LinkagePath = expandPath(cfg.Inputs.LinkagePath, configDir)
	cfg.Inputs.ItemsPath = expandPath(cfg.Inputs.ItemsPath, configDir)
	cfg.Inputs.ComplexesPath = expandPath(cfg.Inputs.ComplexesPath, configDir)
	cfg.Outputs.LabelsPath = expandPath(cfg.Outputs.LabelsPath, configDir)
	cfg.Outputs.TreePath = expandPath(cfg.Outputs.TreePath, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)

	return &cfg, nil
}

// Validate checks that the inputs required for a run are set.
func (c *Config) Validate() error {
	if c.Inputs.LinkagePath == "" {
		return fmt.Errorf("inputs.linkage_path is required")
	}
	if c.Inputs.ItemsPath == "" {
		return fmt.Errorf("inputs.items_path is required")
	}
	if c.Inputs.ComplexesPath == "" {
		return fmt.Errorf("inputs.complexes_path is required")
	}
	switch c.Outputs.LabelsFormat {
	case "", "csv", "json":
	default:
		return fmt.Errorf("outputs.labels_format must be csv or json, got %q", c.Outputs.LabelsFormat)
	}
	return nil
}

// InputPaths returns the three input files in digest order.
func (c *Config) InputPaths() []string {
	return []string{c.Inputs.LinkagePath, c.Inputs.ItemsPath, c.Inputs.ComplexesPath}
}

// expandPath converts a relative path to an absolute one, resolved against
// the directory the config file lives in. Empty and absolute paths pass
// through unchanged.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(configDir, path)
}
