package search

import "github.com/pders01/lumina/internal/api"

// Searcher is the offline search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]Hit, error)
}

// Indexer keeps an index in step with the article cache.
type Indexer interface {
	Index(articles []api.Article) error
	Delete(ids []api.ID) error
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}

// Hit is one offline search result.
type Hit struct {
	ID           api.ID
	Title        string
	URL          string
	SourceDomain string
	Score        float64
}
