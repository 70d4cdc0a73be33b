package complexes

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads a catalog from the first sheet of an Excel workbook. The
// sheet must have a header row with a complex name column and a gene (or
// subunit) column; a description column is picked up when present. Genes
// within a cell may be separated by semicolons, commas, or whitespace.
func LoadXLSX(path string) (Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s has no data rows", sheets[0])
	}

	nameCol, geneCol, descCol := findColumns(rows[0])
	if nameCol < 0 || geneCol < 0 {
		return nil, fmt.Errorf("sheet %s: header must contain a complex name column and a gene or subunit column", sheets[0])
	}

	var cat Catalog
	for _, row := range rows[1:] {
		name := cellAt(row, nameCol)
		genes := SplitGenes(cellAt(row, geneCol))
		if name == "" || len(genes) == 0 {
			continue
		}
		c := Complex{Name: name, Genes: genes}
		if descCol >= 0 {
			c.Description = cellAt(row, descCol)
		}
		cat = append(cat, c)
	}
	if len(cat) == 0 {
		return nil, fmt.Errorf("sheet %s contains no complexes", sheets[0])
	}
	return cat, nil
}

// findColumns locates the name, gene, and description columns by header
// text. Matching is case-insensitive and tolerant of longer header names
// such as "ComplexName" or "subunits(Gene name)".
func findColumns(header []string) (nameCol, geneCol, descCol int) {
	nameCol, geneCol, descCol = -1, -1, -1
	for i, cell := range header {
		h := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case geneCol < 0 && (strings.Contains(h, "subunit") || strings.Contains(h, "gene")):
			geneCol = i
		case nameCol < 0 && (strings.Contains(h, "complex") || h == "name"):
			nameCol = i
		case descCol < 0 && strings.Contains(h, "desc"):
			descCol = i
		}
	}
	return nameCol, geneCol, descCol
}

// SplitGenes splits a delimited gene cell into individual gene names.
func SplitGenes(cell string) []string {
	fields := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ';' || r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	genes := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			genes = append(genes, f)
		}
	}
	return genes
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
