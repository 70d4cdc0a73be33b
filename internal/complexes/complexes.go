// Package complexes loads reference complex catalogs from GMT, JSON, and
// XLSX files. A catalog keeps its complexes in file order, which fixes the
// order they are considered during capture.
package complexes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Complex is a named reference set of genes.
type Complex struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Genes       []string `json:"genes"`
}

// GeneSet returns the deduplicated gene membership set.
func (c *Complex) GeneSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Genes))
	for _, g := range c.Genes {
		set[g] = struct{}{}
	}
	return set
}

// Catalog is an ordered list of complexes.
type Catalog []Complex

// Names returns the complex names in catalog order.
func (cat Catalog) Names() []string {
	names := make([]string, len(cat))
	for i, c := range cat {
		names[i] = c.Name
	}
	return names
}

// Format identifies a catalog file format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatGMT  Format = "gmt"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Load reads a catalog from path. With FormatAuto (or an empty format) the
// format is chosen from the file extension.
func Load(path string, format Format) (Catalog, error) {
	resolved, err := resolveFormat(path, format)
	if err != nil {
		return nil, err
	}

	switch resolved {
	case FormatXLSX:
		return LoadXLSX(path)
	case FormatGMT, FormatJSON:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open complexes file: %w", err)
		}
		defer f.Close()
		if resolved == FormatGMT {
			return ParseGMT(f)
		}
		return ParseJSON(f)
	default:
		return nil, fmt.Errorf("unsupported complexes format: %s", resolved)
	}
}

func resolveFormat(path string, format Format) (Format, error) {
	if format != "" && format != FormatAuto {
		switch format {
		case FormatGMT, FormatJSON, FormatXLSX:
			return format, nil
		default:
			return "", fmt.Errorf("unknown complexes format: %s", format)
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gmt":
		return FormatGMT, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("cannot infer complexes format from %s", filepath.Base(path))
	}
}
