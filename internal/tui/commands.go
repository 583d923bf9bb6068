package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/lumina/internal/api"
	"github.com/pders01/lumina/internal/debuglog"
	"github.com/pders01/lumina/internal/storage"
)

const offlineSearchLimit = 20

var errNoIndex = errors.New("offline search is not available")

func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

func (a *App) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.config.API.Timeout+time.Second)
}

// loadArticle fetches the full article, falling back to the local cache
// when the backend cannot be reached.
func (a *App) loadArticle(id api.ID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()

		art, err := a.backend.GetArticle(ctx, id)
		if err == nil {
			return articleLoadedMsg{article: art}
		}
		if errors.Is(err, api.ErrNotFound) || a.cache == nil {
			return articleLoadedMsg{err: wrapErr("loading article", err)}
		}
		cached, cacheErr := a.cache.GetArticle(id)
		if cacheErr != nil {
			return articleLoadedMsg{err: wrapErr("loading article", err)}
		}
		debuglog.Warnf("article %s served from cache: %v", id, err)
		return articleLoadedMsg{article: &cached.Article, offline: true}
	}
}

func (a *App) renderArticle(art api.Article) tea.Cmd {
	width := a.width
	return func() tea.Msg {
		out, err := a.renderer.Article(art, width)
		if err != nil {
			out = fmt.Sprintf("Failed to render article: %v\n\nPress esc to go back.", err)
		}
		return articleRenderedMsg{id: art.ID, content: out}
	}
}

// cacheArticles keeps list results for the reader fallback and offline
// search.
func (a *App) cacheArticles(items []api.Article) tea.Cmd {
	if len(items) == 0 || (a.cache == nil && a.index == nil) {
		return nil
	}
	batch := append([]api.Article(nil), items...)
	return func() tea.Msg {
		if a.cache != nil {
			if err := a.cache.SaveArticles(batch); err != nil {
				return errorMsg{err: wrapErr("caching articles", err)}
			}
		}
		if a.index != nil {
			if err := a.index.Index(batch); err != nil {
				return errorMsg{err: wrapErr("indexing articles", err)}
			}
		}
		return nil
	}
}

// pruneCache drops cached articles older than the retention window.
func (a *App) pruneCache() tea.Cmd {
	if a.cache == nil || a.config.List.CacheRetention <= 0 {
		return nil
	}
	retention := a.config.List.CacheRetention
	return func() tea.Msg {
		ids, err := a.cache.Prune(retention)
		if err != nil {
			return errorMsg{err: wrapErr("pruning cache", err)}
		}
		if len(ids) > 0 && a.index != nil {
			if err := a.index.Delete(ids); err != nil {
				return errorMsg{err: wrapErr("pruning index", err)}
			}
		}
		debuglog.Debugf("pruned %d cached articles", len(ids))
		return nil
	}
}

func (a *App) setVisibility(ids []api.ID, visible bool) tea.Cmd {
	verb := "Hid"
	if visible {
		verb = "Showed"
	}
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()

		if len(ids) == 1 {
			if err := a.backend.SetVisibility(ctx, ids[0], visible); err != nil {
				return moderatedMsg{err: wrapErr("changing visibility", err)}
			}
			return moderatedMsg{status: MsgModeration(verb, 1)}
		}
		res, err := a.backend.BatchSetVisibility(ctx, ids, visible)
		if err != nil {
			return moderatedMsg{err: wrapErr("changing visibility", err)}
		}
		return moderatedMsg{status: MsgModeration(verb, res.Updated)}
	}
}

func (a *App) setCategory(ids []api.ID, categoryID api.ID, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()

		n := 1
		if len(ids) == 1 {
			if err := a.backend.SetCategory(ctx, ids[0], categoryID); err != nil {
				return moderatedMsg{err: wrapErr("setting category", err)}
			}
		} else {
			res, err := a.backend.BatchSetCategory(ctx, ids, categoryID)
			if err != nil {
				return moderatedMsg{err: wrapErr("setting category", err)}
			}
			n = res.Updated
		}
		return moderatedMsg{status: MsgModeration("Moved", n) + " to " + name}
	}
}

func (a *App) deleteArticles(ids []api.ID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()

		n := 1
		if len(ids) == 1 {
			if err := a.backend.DeleteArticle(ctx, ids[0]); err != nil {
				return moderatedMsg{err: wrapErr("deleting article", err)}
			}
		} else {
			res, err := a.backend.BatchDelete(ctx, ids)
			if err != nil {
				return moderatedMsg{err: wrapErr("deleting articles", err)}
			}
			n = res.Updated
		}
		if a.cache != nil {
			if err := a.cache.DeleteArticles(ids); err != nil {
				debuglog.Warnf("dropping deleted articles from cache: %v", err)
			}
		}
		if a.index != nil {
			if err := a.index.Delete(ids); err != nil {
				debuglog.Warnf("dropping deleted articles from index: %v", err)
			}
		}
		return moderatedMsg{status: MsgModeration("Deleted", n), deleted: ids}
	}
}

func (a *App) performOfflineSearch(query string) tea.Cmd {
	if a.index == nil {
		return func() tea.Msg { return offlineResultsMsg{query: query, err: errNoIndex} }
	}
	return func() tea.Msg {
		hits, err := a.index.Search(query, offlineSearchLimit)
		return offlineResultsMsg{query: query, hits: hits, err: err}
	}
}

func (a *App) openURL(url string) tea.Cmd {
	open := a.open
	return func() tea.Msg {
		if err := open(url); err != nil {
			return errorMsg{err: fmt.Errorf("failed to open %s: %w", url, err)}
		}
		return statusMsg{text: "Opened " + truncateMiddle(url, 60), kind: StatusSuccess}
	}
}

// cachedArticle returns the cached copy of id, if any.
func (a *App) cachedArticle(id api.ID) (*storage.CachedArticle, bool) {
	if a.cache == nil {
		return nil, false
	}
	c, err := a.cache.GetArticle(id)
	if err != nil {
		return nil, false
	}
	return c, true
}
