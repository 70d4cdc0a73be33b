// Package catalog provides in-memory full-text search over a loaded complex
// catalog, so complexes can be found by name, description, or member gene.
package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/proteomica/comap/internal/complexes"
)

// Hit is one search match, resolved back to the catalog entry.
type Hit struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Genes       []string `json:"genes"`
	Score       float64  `json:"score"`
}

// Index is an in-memory search index over a catalog.
type Index struct {
	idx bleve.Index
	cat complexes.Catalog
}

// indexEntry is the document shape handed to bleve. Genes are joined with
// spaces so the standard analyzer tokenizes them individually.
type indexEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Genes       string `json:"genes"`
}

// New builds an in-memory index over the catalog. Document ids are catalog
// positions, so hits resolve to entries without storing fields in the index.
func New(cat complexes.Catalog) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}

	batch := idx.NewBatch()
	for i, c := range cat {
		entry := indexEntry{
			Name:        c.Name,
			Description: c.Description,
			Genes:       strings.Join(c.Genes, " "),
		}
		if err := batch.Index(strconv.Itoa(i), entry); err != nil {
			return nil, fmt.Errorf("failed to index complex %q: %w", c.Name, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to index catalog: %w", err)
	}
	return &Index{idx: idx, cat: cat}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	entryMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	entryMapping.AddFieldMappingsAt("name", textField)
	entryMapping.AddFieldMappingsAt("description", textField)
	entryMapping.AddFieldMappingsAt("genes", textField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = entryMapping
	return indexMapping
}

// Search returns up to limit complexes matching the query. With fuzzy set,
// terms within edit distance 2 also match, which forgives gene name typos.
func (x *Index) Search(queryString string, limit int, fuzzy bool) ([]*Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(buildQuery(queryString, fuzzy), limit, 0, false)
	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]*Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		pos, err := strconv.Atoi(h.ID)
		if err != nil || pos < 0 || pos >= len(x.cat) {
			continue
		}
		c := x.cat[pos]
		hits = append(hits, &Hit{
			Name:        c.Name,
			Description: c.Description,
			Genes:       c.Genes,
			Score:       h.Score,
		})
	}
	return hits, nil
}

func buildQuery(queryString string, fuzzy bool) query.Query {
	match := bleve.NewMatchQuery(queryString)
	if !fuzzy {
		return match
	}

	dis := bleve.NewDisjunctionQuery(match)
	for _, term := range strings.Fields(strings.ToLower(queryString)) {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(2)
		dis.AddQuery(fq)
	}
	return dis
}

// Count returns the number of indexed complexes.
func (x *Index) Count() (uint64, error) {
	return x.idx.DocCount()
}

// Close releases the index.
func (x *Index) Close() error {
	return x.idx.Close()
}
