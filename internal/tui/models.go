package tui

import (
	"github.com/pders01/lumina/internal/api"
	"github.com/pders01/lumina/internal/search"
)

type View int

const (
	ViewList View = iota
	ViewReader
	ViewFilters
	ViewJump
	ViewDeleteConfirm
	ViewCategory
	ViewSearch
)

func (v View) String() string {
	switch v {
	case ViewList:
		return "list"
	case ViewReader:
		return "reader"
	case ViewFilters:
		return "filters"
	case ViewJump:
		return "jump"
	case ViewDeleteConfirm:
		return "delete"
	case ViewCategory:
		return "category"
	case ViewSearch:
		return "search"
	}
	return "unknown"
}

type articleLoadedMsg struct {
	article *api.Article
	offline bool
	err     error
}

type articleRenderedMsg struct {
	id      api.ID
	content string
}

// moderatedMsg reports a finished mutation. deleted lists ids that no
// longer exist on the backend.
type moderatedMsg struct {
	status  string
	deleted []api.ID
	err     error
}

type offlineResultsMsg struct {
	query string
	hits  []search.Hit
	err   error
}

type offlineDebounceMsg struct {
	seq int
}

type statusMsg struct {
	text string
	kind StatusKind
}

type errorMsg struct {
	err error
}
