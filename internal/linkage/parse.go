package linkage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Parse reads a linkage matrix from r: one merge per row with four columns
// (cluster a, cluster b, distance, size), comma or tab delimited. Cluster ids
// and sizes may be written in float notation, as numeric exports commonly do.
// A single non-numeric header row is tolerated and skipped.
func Parse(r io.Reader, delimiter rune) (*Linkage, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var merges []Merge
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read linkage row: %w", err)
		}
		line++
		if isBlank(record) {
			continue
		}
		if len(record) < 4 {
			return nil, fmt.Errorf("linkage row %d: expected 4 columns, got %d", line, len(record))
		}

		a, errA := parseClusterID(record[0])
		b, errB := parseClusterID(record[1])
		dist, errD := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		size, errS := parseClusterID(record[3])
		if errA != nil || errB != nil || errD != nil || errS != nil {
			if line == 1 && len(merges) == 0 {
				// header row
				continue
			}
			return nil, fmt.Errorf("linkage row %d: non-numeric value in %q", line, strings.Join(record, string(delimiter)))
		}
		merges = append(merges, Merge{A: a, B: b, Distance: dist, Size: size})
	}

	link, err := New(merges)
	if err != nil {
		return nil, fmt.Errorf("invalid linkage: %w", err)
	}
	return link, nil
}

// Load reads a linkage matrix from path, choosing the delimiter from the file
// extension (.tsv and .txt are tab delimited, anything else comma).
func Load(path string) (*Linkage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open linkage file: %w", err)
	}
	defer f.Close()

	link, err := Parse(f, delimiterFor(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return link, nil
}

// LoadItems reads item names from path, one per line in linkage leaf order.
// Blank lines and lines starting with '#' are skipped.
func LoadItems(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open items file: %w", err)
	}
	defer f.Close()

	var items []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		items = append(items, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("items file %s is empty", filepath.Base(path))
	}
	return items, nil
}

func delimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		return '\t'
	default:
		return ','
	}
}

// parseClusterID parses an integer that may be written in float notation,
// such as "5", "5.0", or "5.000000e+00".
func parseClusterID(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	rounded := math.Round(v)
	if math.Abs(v-rounded) > 1e-9 {
		return 0, fmt.Errorf("value %s is not an integer", s)
	}
	return int(rounded), nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
