package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pders01/lumina/internal/api"
)

// BleveIndex is a full-text index over cached articles.
type BleveIndex struct {
	idx   bleve.Index
	strip *bluemonday.Policy
}

var (
	_ Searcher     = (*BleveIndex)(nil)
	_ Indexer      = (*BleveIndex)(nil)
	_ DebugStatser = (*BleveIndex)(nil)
)

// Open opens or creates the index at indexPath. An empty path keeps the
// index in memory.
func Open(indexPath string) (*BleveIndex, error) {
	if indexPath == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating in-memory index: %w", err)
		}
		return &BleveIndex{idx: idx, strip: bluemonday.StrictPolicy()}, nil
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index at %s: %w", indexPath, err)
		}
	}
	return &BleveIndex{idx: idx, strip: bluemonday.StrictPolicy()}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Store = true
	title.IncludeTermVectors = true

	summary := bleve.NewTextFieldMapping()
	summary.Store = false

	content := bleve.NewTextFieldMapping()
	content.Store = false
	content.IncludeTermVectors = false

	author := bleve.NewTextFieldMapping()
	author.Store = false

	url := bleve.NewTextFieldMapping()
	url.Store = true

	domain := bleve.NewTextFieldMapping()
	domain.Analyzer = keyword.Name
	domain.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("summary", summary)
	dm.AddFieldMappingsAt("content", content)
	dm.AddFieldMappingsAt("author", author)
	dm.AddFieldMappingsAt("url", url)
	dm.AddFieldMappingsAt("source_domain", domain)

	im.DefaultMapping = dm
	return im
}

func (b *BleveIndex) document(a api.Article) map[string]any {
	return map[string]any{
		"title":         a.Title,
		"summary":       b.strip.Sanitize(a.Summary),
		"content":       b.strip.Sanitize(a.Content),
		"author":        a.Author,
		"url":           a.URL,
		"source_domain": a.SourceDomain,
	}
}

// Index adds or replaces articles in one batch.
func (b *BleveIndex) Index(articles []api.Article) error {
	batch := b.idx.NewBatch()
	for _, a := range articles {
		if a.ID == "" {
			continue
		}
		if err := batch.Index(string(a.ID), b.document(a)); err != nil {
			return fmt.Errorf("indexing article %s: %w", a.ID, err)
		}
	}
	return b.idx.Batch(batch)
}

// Delete drops articles from the index.
func (b *BleveIndex) Delete(ids []api.ID) error {
	batch := b.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(string(id))
	}
	return b.idx.Batch(batch)
}

// Search runs an OR of per-term matches across the indexed fields, title
// weighted highest. Queries shorter than two characters return nothing.
func (b *BleveIndex) Search(query string, limit int) ([]Hit, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	fields := []struct {
		name  string
		boost float64
	}{
		{"title", 4.0},
		{"summary", 2.0},
		{"author", 1.5},
		{"content", 1.0},
		{"url", 0.5},
	}
	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		for _, f := range fields {
			m := bleve.NewMatchQuery(tok)
			m.SetField(f.name)
			m.SetBoost(f.boost)
			qs = append(qs, m)

			p := bleve.NewPrefixQuery(tok)
			p.SetField(f.name)
			p.SetBoost(f.boost * 0.8)
			qs = append(qs, p)
		}
	}
	if len(qs) == 0 {
		return []Hit{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title", "url", "source_domain"}
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	out := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: api.ID(h.ID), Score: h.Score}
		if t, ok := h.Fields["title"].(string); ok {
			hit.Title = t
		}
		if u, ok := h.Fields["url"].(string); ok {
			hit.URL = u
		}
		if d, ok := h.Fields["source_domain"].(string); ok {
			hit.SourceDomain = d
		}
		out = append(out, hit)
	}
	return out, nil
}

// DocCount reports total documents in the index.
func (b *BleveIndex) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (b *BleveIndex) Close() error {
	return b.idx.Close()
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit. Single characters are dropped.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 1 {
			terms = append(terms, current.String())
		}
		current.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return terms
}
