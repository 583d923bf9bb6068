package storage

import (
	"time"

	"github.com/pders01/lumina/internal/api"
)

// CachedArticle is an article seen in a list response, kept for offline
// search and the reader view.
type CachedArticle struct {
	api.Article
	CachedAt time.Time `json:"cached_at"`
}

// ViewState is the last list location, restored on the next launch.
type ViewState struct {
	Query     string    `json:"query"`
	UpdatedAt time.Time `json:"updated_at"`
}
