package complexes

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseGMT reads a catalog in GMT format: one complex per line, tab
// separated, with the name in the first column, a description in the second,
// and member genes in the remaining columns.
func ParseGMT(r io.Reader) (Catalog, error) {
	var cat Catalog
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("gmt line %d: expected at least 3 tab-separated columns, got %d", line, len(fields))
		}
		name := strings.TrimSpace(fields[0])
		if name == "" {
			return nil, fmt.Errorf("gmt line %d: empty complex name", line)
		}
		var genes []string
		for _, g := range fields[2:] {
			g = strings.TrimSpace(g)
			if g != "" {
				genes = append(genes, g)
			}
		}
		cat = append(cat, Complex{
			Name:        name,
			Description: strings.TrimSpace(fields[1]),
			Genes:       genes,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read gmt input: %w", err)
	}
	if len(cat) == 0 {
		return nil, fmt.Errorf("gmt input contains no complexes")
	}
	return cat, nil
}
