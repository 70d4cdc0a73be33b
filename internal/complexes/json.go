package complexes

import (
	"encoding/json"
	"fmt"
	"io"
)

// ParseJSON reads a catalog from JSON. Two shapes are accepted: an object
// mapping complex names to gene lists, and an array of {name, genes}
// objects. Object keys are consumed with a token decoder so the catalog
// keeps the file's complex order.
func ParseJSON(r io.Reader) (Catalog, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to decode complexes JSON: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("complexes JSON must be an object or an array")
	}

	var cat Catalog
	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("failed to decode complexes JSON: %w", err)
			}
			name, _ := keyTok.(string)
			var genes []string
			if err := dec.Decode(&genes); err != nil {
				return nil, fmt.Errorf("complex %q: expected a gene list: %w", name, err)
			}
			cat = append(cat, Complex{Name: name, Genes: genes})
		}
	case '[':
		for dec.More() {
			var c Complex
			if err := dec.Decode(&c); err != nil {
				return nil, fmt.Errorf("failed to decode complex entry: %w", err)
			}
			if c.Name == "" {
				return nil, fmt.Errorf("complex entry %d has no name", len(cat))
			}
			cat = append(cat, c)
		}
	default:
		return nil, fmt.Errorf("complexes JSON must be an object or an array")
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode complexes JSON: %w", err)
	}
	if len(cat) == 0 {
		return nil, fmt.Errorf("complexes JSON contains no complexes")
	}
	return cat, nil
}
